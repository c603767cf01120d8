package bridge_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/omochice/ng-bridge/internal/bridge"
	"github.com/omochice/ng-bridge/pkg/protocol"
)

func TestMalformedFrames_AreDropped(t *testing.T) {
	conn := newMockConn()
	b, rec := newBridge(t, conn)

	conn.feedRaw(`not json`)
	conn.feed(t, protocol.PlayerJoin{Name: "bob"})
	conn.feedRaw(`{"Teleport":{"to":"moon"}}`, `{"PlayerJoin":{}}`)
	conn.feed(t, protocol.LoginResult{})
	conn.feedRaw(`{"MessageFrom":{"sender":"bob"`)
	conn.feed(t, protocol.PlayerReady{Name: "bob"})
	conn.feedRaw(`"Dance"`)
	conn.feed(t, protocol.GameEndTimeout{})

	if err := b.Login("alice"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := b.Drain(); err != nil {
			t.Fatalf("Drain() error = %v", err)
		}
	}

	want := []event{
		{name: "player_join", payload: "bob"},
		{name: "player_ready", payload: "bob"},
		{name: "timeout", payload: nil},
	}
	if got := rec.Events(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	// One server event per queued response, none for dropped frames.
	waitServerEvents(t, rec, 4)
	time.Sleep(20 * time.Millisecond)
	if got := rec.ServerEvents(); got != 4 {
		t.Errorf("server events = %d, want 4", got)
	}
}

func TestDrain_PreservesOrder(t *testing.T) {
	conn := newMockConn()
	b, rec := newBridge(t, conn)

	conn.feed(t, protocol.LoginResult{})
	if err := b.Login("alice"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	responses := []protocol.Response{
		protocol.Overview{Clients: []byte(`["alice","bob"]`), GameState: []byte(`"Idle"`)},
		protocol.AssignStart{Assignee: "bob"},
		protocol.AssignResult{},
		protocol.GameStart{Assigned: []byte(`{"bob":"apple"}`)},
		protocol.TimerReset{Timer: protocol.DurationOf(30 * time.Second)},
		protocol.PlayerOut{Quitter: "bob", Word: "apple", Suicide: true},
		protocol.GameWin{Winner: "alice", Word: "pear"},
		protocol.StartVoteAbort{},
		protocol.VotedAbort{Abort: true, Voter: "bob"},
		protocol.VoteAbortResult{Abort: false},
		protocol.ReadyResult{Excuse: excuse("game running")},
		protocol.GameEndUnproceedable{},
	}
	conn.feed(t, responses...)

	for range responses {
		if err := b.Drain(); err != nil {
			t.Fatalf("Drain() error = %v", err)
		}
	}

	got := rec.Events()
	if len(got) != len(responses) {
		t.Fatalf("got %d events, want %d", len(got), len(responses))
	}
	for i, r := range responses {
		name, _ := r.Event()
		if got[i].name != name {
			t.Errorf("event %d = %q, want %q", i, got[i].name, name)
		}
	}
}

func TestDrain_BeforeLogin(t *testing.T) {
	conn := newMockConn()
	b, _ := newBridge(t, conn)

	if err := b.Drain(); !errors.Is(err, bridge.ErrNotAuthenticated) {
		t.Errorf("Drain() error = %v, want ErrNotAuthenticated", err)
	}
	if err := b.Flush(); !errors.Is(err, bridge.ErrNotAuthenticated) {
		t.Errorf("Flush() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestDrain_IgnoresLateLoginResult(t *testing.T) {
	conn := newMockConn()
	b, rec := newBridge(t, conn)

	conn.feed(t, protocol.LoginResult{})
	if err := b.Login("alice"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	conn.feed(t, protocol.LoginResult{}, protocol.PlayerJoin{Name: "bob"})
	for i := 0; i < 2; i++ {
		if err := b.Drain(); err != nil {
			t.Fatalf("Drain() error = %v", err)
		}
	}

	want := []event{{name: "player_join", payload: "bob"}}
	if got := rec.Events(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestFlush_StopsWhenConnectionCloses(t *testing.T) {
	conn := newMockConn()
	b, rec := newBridge(t, conn)

	conn.feed(t, protocol.LoginResult{})
	if err := b.Login("alice"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	conn.feed(t, protocol.PlayerJoin{Name: "bob"}, protocol.PlayerQuit{Name: "bob"})
	conn.hangUp()

	errCh := make(chan error, 1)
	go func() { errCh <- b.Flush() }()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Flush() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Flush() did not return after the connection closed")
	}

	want := []event{
		{name: "player_join", payload: "bob"},
		{name: "player_quit", payload: "bob"},
	}
	if got := rec.Events(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if err := b.Drain(); !errors.Is(err, bridge.ErrClosed) {
		t.Errorf("Drain() after close error = %v, want ErrClosed", err)
	}
	if err := b.Wait(); err != nil {
		t.Errorf("Wait() error = %v, want nil for a clean close", err)
	}
}

func TestReadFailure_StopsBridge(t *testing.T) {
	conn := newMockConn()
	conn.readErr = errors.New("connection reset")
	b, _ := newBridge(t, conn)

	waitDone(t, b)

	var transportErr *bridge.TransportError
	if err := b.Wait(); !errors.As(err, &transportErr) || transportErr.Op != "read" {
		t.Errorf("Wait() error = %v, want read *bridge.TransportError", err)
	}
}

func TestOverflowDrop_DiscardsWhenFull(t *testing.T) {
	conn := newMockConn()
	rec := &recorder{}
	b := bridge.New(conn, conn, bridge.NewQueues(0, 1), rec,
		bridge.WithCloser(conn), bridge.WithOverflow(bridge.OverflowDrop))

	conn.feed(t, protocol.PlayerJoin{Name: "a"}, protocol.PlayerJoin{Name: "b"}, protocol.PlayerJoin{Name: "c"})
	conn.hangUp()
	b.Start()
	defer b.Close()

	waitDone(t, b)
	if got := rec.ServerEvents(); got != 1 {
		t.Errorf("server events = %d, want 1", got)
	}
}

func TestOverflowBlock_KeepsEveryResponse(t *testing.T) {
	conn := newMockConn()
	rec := &recorder{}
	b := bridge.New(conn, conn, bridge.NewQueues(0, 1), rec, bridge.WithCloser(conn))
	b.Start()
	defer b.Close()

	buffered, want := joins(5)
	conn.feed(t, buffered...)
	conn.feed(t, protocol.LoginResult{})

	if err := b.Login("alice"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got := rec.Events(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestParseOverflow(t *testing.T) {
	tests := []struct {
		in      string
		want    bridge.Overflow
		wantErr bool
	}{
		{in: "block", want: bridge.OverflowBlock},
		{in: "", want: bridge.OverflowBlock},
		{in: " DROP ", want: bridge.OverflowDrop},
		{in: "spill", wantErr: true},
	}
	for _, tt := range tests {
		got, err := bridge.ParseOverflow(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOverflow(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOverflow(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNotifierFunc(t *testing.T) {
	conn := newMockConn()
	events := make(chan string, 8)
	notifier := bridge.NotifierFunc(func(event string, _ any) {
		if event != bridge.EventServer {
			events <- event
		}
	})
	b := bridge.New(conn, conn, nil, notifier, bridge.WithCloser(conn))
	b.Start()
	defer b.Close()

	conn.feed(t, protocol.LoginResult{}, protocol.StartVoteAbort{})
	if err := b.Login("alice"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := b.Drain(); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}

	select {
	case got := <-events:
		if got != "start_vote_abort" {
			t.Errorf("event = %q, want start_vote_abort", got)
		}
	default:
		t.Fatal("no event delivered")
	}
}
