package wsclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/samp-tools/ds9samp/envelope"
	"github.com/samp-tools/ds9samp/hub"
)

// stubHub runs a scripted hub behind an httptest server. The script gets the
// upgraded connection and drives the frame exchange by hand.
func stubHub(t *testing.T, script func(conn *websocket.Conn)) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade() error = %v", err)
			return
		}
		defer conn.Close()
		script(conn)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Errorf("stub hub read error = %v", err)
	}
	return f
}

func writeFrameTo(t *testing.T, conn *websocket.Conn, f frame) {
	t.Helper()
	if err := conn.WriteJSON(f); err != nil {
		t.Errorf("stub hub write error = %v", err)
	}
}

// waitClose blocks until the client drops the connection.
func waitClose(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// recorder collects receiver callbacks for assertions.
type recorder struct {
	mu           sync.Mutex
	replies      map[string]*envelope.Reply
	disconnected chan error
}

func newRecorder() *recorder {
	return &recorder{
		replies:      make(map[string]*envelope.Reply),
		disconnected: make(chan error, 1),
	}
}

func (r *recorder) ReceiveCall(senderID, msgID string, msg *envelope.Message) {}

func (r *recorder) ReceiveReply(tag string, rep *envelope.Reply) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies[tag] = rep
}

func (r *recorder) Disconnected(err error) {
	r.disconnected <- err
}

func (r *recorder) reply(tag string) *envelope.Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replies[tag]
}

func TestRegister(t *testing.T) {
	url := stubHub(t, func(conn *websocket.Conn) {
		f := readFrame(t, conn)
		if f.Op != opRegister {
			t.Errorf("first frame op = %q, want register", f.Op)
		}
		writeFrameTo(t, conn, frame{Op: opAck, Seq: f.Seq, ClientID: "c1"})
		waitClose(conn)
	})

	c, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	id, err := c.Register(context.Background())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if id != "c1" {
		t.Errorf("Register() = %q, want c1", id)
	}
}

func TestIntrospection(t *testing.T) {
	meta := hub.Metadata{Name: "ds9", Version: "8.6"}
	url := stubHub(t, func(conn *websocket.Conn) {
		for i := 0; i < 3; i++ {
			f := readFrame(t, conn)
			switch f.Op {
			case opClients:
				writeFrameTo(t, conn, frame{Op: opAck, Seq: f.Seq, ClientIDs: []string{"c1", "c4"}})
			case opGetMetadata:
				if f.ClientID != "c4" {
					t.Errorf("get-metadata client_id = %q, want c4", f.ClientID)
				}
				writeFrameTo(t, conn, frame{Op: opAck, Seq: f.Seq, Metadata: &meta})
			case opGetSubscriptions:
				writeFrameTo(t, conn, frame{Op: opAck, Seq: f.Seq, MTypes: []string{"ds9.get", "ds9.set"}})
			default:
				t.Errorf("unexpected op %q", f.Op)
			}
		}
		waitClose(conn)
	})

	c, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	ids, err := c.RegisteredClients(ctx)
	if err != nil {
		t.Fatalf("RegisteredClients() error = %v", err)
	}
	if len(ids) != 2 || ids[1] != "c4" {
		t.Errorf("RegisteredClients() = %v, want [c1 c4]", ids)
	}

	got, err := c.GetMetadata(ctx, "c4")
	if err != nil {
		t.Fatalf("GetMetadata() error = %v", err)
	}
	if got != meta {
		t.Errorf("GetMetadata() = %+v, want %+v", got, meta)
	}

	subs, err := c.GetSubscriptions(ctx, "c4")
	if err != nil {
		t.Fatalf("GetSubscriptions() error = %v", err)
	}
	if len(subs) != 2 {
		t.Errorf("GetSubscriptions() = %v, want both mtypes", subs)
	}
}

func TestCall_ReplyPushedToReceiver(t *testing.T) {
	url := stubHub(t, func(conn *websocket.Conn) {
		f := readFrame(t, conn)
		if f.Op != opCall || f.Recipient != "c4" {
			t.Errorf("call frame = %+v, want op call for c4", f)
		}
		msg, err := envelope.DecodeMessage(f.Message)
		if err != nil {
			t.Errorf("DecodeMessage() error = %v", err)
			return
		}
		if msg.MType != "ds9.get" {
			t.Errorf("call mtype = %q, want ds9.get", msg.MType)
		}

		writeFrameTo(t, conn, frame{Op: opAck, Seq: f.Seq})

		rep := envelope.NewSuccess().Value("grey").Build()
		writeFrameTo(t, conn, frame{
			Op:    opDeliverReply,
			Tag:   f.Tag,
			Reply: envelope.EncodeReply(rep),
		})
		waitClose(conn)
	})

	c, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	rec := newRecorder()
	c.SetReceiver(rec)

	msg := envelope.NewCommand("ds9.get", "cmap").Build()
	if err := c.Call(context.Background(), "c4", "tag-1", msg); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	// The reply rides the read loop; give it a moment.
	deadline := time.Now().Add(2 * time.Second)
	for rec.reply("tag-1") == nil {
		if time.Now().After(deadline) {
			t.Fatal("reply never reached the receiver")
		}
		time.Sleep(5 * time.Millisecond)
	}

	rep := rec.reply("tag-1")
	if rep.Status != envelope.StatusOK || rep.Result[envelope.ResultValue] != "grey" {
		t.Errorf("reply = %+v, want ok with value grey", rep)
	}
}

func TestErrorCodes(t *testing.T) {
	url := stubHub(t, func(conn *websocket.Conn) {
		f := readFrame(t, conn)
		writeFrameTo(t, conn, frame{Op: opError, Seq: f.Seq, Code: codeClientNotFound, Error: "no client c9"})

		f = readFrame(t, conn)
		writeFrameTo(t, conn, frame{Op: opError, Seq: f.Seq, Code: codeNotRegistered})

		waitClose(conn)
	})

	c, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	if _, err := c.GetMetadata(ctx, "c9"); !errors.Is(err, hub.ErrClientNotFound) {
		t.Errorf("GetMetadata() error = %v, want ErrClientNotFound", err)
	}

	// An unregister on an unregistered client is treated as already done.
	if err := c.Unregister(ctx); err != nil {
		t.Errorf("Unregister() error = %v, want nil for not-registered", err)
	}
}

func TestClose_UnregistersFirst(t *testing.T) {
	ops := make(chan string, 1)
	url := stubHub(t, func(conn *websocket.Conn) {
		f := readFrame(t, conn)
		writeFrameTo(t, conn, frame{Op: opAck, Seq: f.Seq, ClientID: "c1"})

		f = readFrame(t, conn)
		ops <- f.Op
		waitClose(conn)
	})

	c, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	if _, err := c.Register(context.Background()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case op := <-ops:
		if op != opUnregister {
			t.Errorf("frame before close = %q, want unregister", op)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no unregister frame arrived before the close")
	}
}

func TestServerClose_NotifiesReceiver(t *testing.T) {
	url := stubHub(t, func(conn *websocket.Conn) {
		// Give the test time to attach its receiver, then drop the
		// connection without a close handshake.
		time.Sleep(200 * time.Millisecond)
	})

	c, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	rec := newRecorder()
	c.SetReceiver(rec)

	select {
	case err := <-rec.disconnected:
		if !errors.Is(err, hub.ErrClosed) {
			t.Errorf("Disconnected(%v), want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("receiver was never told about the lost connection")
	}
}

func TestLocalClose_Silent(t *testing.T) {
	url := stubHub(t, func(conn *websocket.Conn) {
		waitClose(conn)
	})

	c, err := Dial(context.Background(), url)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	rec := newRecorder()
	c.SetReceiver(rec)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case err := <-rec.disconnected:
		t.Errorf("local Close() triggered Disconnected(%v)", err)
	case <-time.After(100 * time.Millisecond):
	}

	// Operations after close fail cleanly.
	if _, err := c.Register(context.Background()); !errors.Is(err, hub.ErrClosed) {
		t.Errorf("Register() after Close error = %v, want ErrClosed", err)
	}
}
