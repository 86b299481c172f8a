package signx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/signx/internal/flows"
	"github.com/MrEthical07/signx/internal/mediatortest"
	"github.com/MrEthical07/signx/internal/secure"
)

func TestTransactValidatesBeforeNetwork(t *testing.T) {
	engine, srv, _ := newTestEngine(t)

	tooMany := sampleRequest()
	for i := 0; i < 100; i++ {
		tooMany.Transactions = append(tooMany.Transactions, Transaction{TxBodyHex: "0a"})
	}
	noAddress := sampleRequest("0a")
	noAddress.Address = ""
	noTimestamp := sampleRequest("0a")
	noTimestamp.Timestamp = ""

	cases := []struct {
		name string
		req  TransactRequest
		want error
	}{
		{"no transactions", sampleRequest(), ErrNoTransactions},
		{"too many", tooMany, ErrTooManyTransactions},
		{"missing account", noAddress, ErrAccountDetailsMissing},
		{"missing timestamp", noTimestamp, ErrTimestampMissing},
		{"empty body", sampleRequest("0a", ""), ErrTransactionBodyMissing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Transact(context.Background(), tc.req, false)
			if !errors.Is(err, tc.want) || !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if srv.Calls("") != 0 {
		t.Fatalf("invalid input reached the mediator")
	}
	if _, ok := engine.Session(); ok {
		t.Fatalf("invalid input created a session")
	}
}

func TestTransactCreatesSession(t *testing.T) {
	engine, srv, sink := newTestEngine(t)
	srv.Script(flows.RouteTransactCreate, mediatortest.Created(mediatortest.Active{Hash: "tx-a", Sequence: mediatortest.Seq(1)}))

	req := sampleRequest()
	req.Transactions = []Transaction{
		{TxBodyHex: "cc"},
		{TxBodyHex: "bb", Sequence: seq(2)},
		{TxBodyHex: "aa", Sequence: seq(1)},
	}
	data, err := engine.Transact(context.Background(), req, false)
	if err != nil {
		t.Fatalf("transact failed: %v", err)
	}
	if data.Added || data.Type != TypeTransact || data.Version != 2 || data.Hash != data.SessionHash {
		t.Fatalf("unexpected transact data: %+v", data)
	}
	if data.ActiveTransaction == nil || data.ActiveTransaction.Hash != "tx-a" || data.ActiveTransaction.Sequence != 1 {
		t.Fatalf("unexpected active transaction: %+v", data.ActiveTransaction)
	}
	if _, err := time.Parse(deadlineLayout, data.Timeout); err != nil {
		t.Fatalf("timeout is not an ISO timestamp: %q", data.Timeout)
	}

	creates := srv.Requests(flows.RouteTransactCreate)
	if len(creates) != 1 {
		t.Fatalf("expected one create, got %d", len(creates))
	}
	var body flows.TransactCreateBody
	if err := creates[0].Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Hash != data.SessionHash || body.Transactions.Hash != data.SessionHash || body.PubKey != req.PubKey {
		t.Fatalf("unexpected create body: %+v", body)
	}
	items := body.Transactions.Transactions
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, want := range []string{"aa", "bb", "cc"} {
		if items[i].TxBodyHex != want || items[i].Sequence != i+1 || items[i].Timestamp != req.Timestamp {
			t.Fatalf("item %d: unexpected %+v", i, items[i])
		}
	}
	if secure.SecureHash(items[0].Hash, body.Transactions.SecureNonce) != data.SessionHash {
		t.Fatalf("session hash is not derived from the first item")
	}

	ev := expectEvent(t, sink, EventSessionStarted)
	started := ev.Payload.(SessionEvent)
	if started.SessionHash != data.SessionHash || started.Sequence != 1 || started.Active == nil || started.Active.Hash != "tx-a" {
		t.Fatalf("unexpected started payload: %+v", started)
	}

	info, ok := engine.Session()
	if !ok || !info.Polling || info.SessionHash != data.SessionHash || info.ActiveTransaction != "tx-a" {
		t.Fatalf("unexpected session: %+v", info)
	}

	eventually(t, "response polling", func() bool {
		return srv.Calls(flows.RouteTransactResponse) > 0
	})
	var poll flows.PollBody
	if err := srv.Requests(flows.RouteTransactResponse)[0].Decode(&poll); err != nil {
		t.Fatal(err)
	}
	if poll.Hash != "tx-a" || poll.SecureNonce != body.Transactions.SecureNonce {
		t.Fatalf("unexpected response poll body: %+v", poll)
	}
}

func TestTransactAddsToRunningSession(t *testing.T) {
	engine, srv, sink := newTestEngine(t)
	srv.Script(flows.RouteTransactCreate, mediatortest.Created(mediatortest.Active{Hash: "tx-a", Sequence: mediatortest.Seq(1)}))
	srv.Script(flows.RouteTransactAdd, mediatortest.Added(true, &mediatortest.Active{Hash: "tx-a", Sequence: mediatortest.Seq(1)}))

	first, err := engine.Transact(context.Background(), sampleRequest("0a"), false)
	if err != nil {
		t.Fatal(err)
	}
	expectEvent(t, sink, EventSessionStarted)
	before, _ := engine.Session()

	second, err := engine.Transact(context.Background(), sampleRequest("0b", "0c"), false)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if !second.Added || !second.ShowQR || second.SessionHash != first.SessionHash {
		t.Fatalf("unexpected add result: %+v", second)
	}

	after, ok := engine.Session()
	if !ok || after.SessionHash != before.SessionHash || after.Sequence < before.Sequence || !after.Polling {
		t.Fatalf("session changed by add: before %+v after %+v", before, after)
	}
	if srv.Calls(flows.RouteTransactCreate) != 1 || srv.Calls(flows.RouteTransactAdd) != 1 {
		t.Fatalf("expected one create and one add")
	}

	var add flows.TransactionBatch
	if err := srv.Requests(flows.RouteTransactAdd)[0].Decode(&add); err != nil {
		t.Fatal(err)
	}
	var create flows.TransactCreateBody
	if err := srv.Requests(flows.RouteTransactCreate)[0].Decode(&create); err != nil {
		t.Fatal(err)
	}
	if add.Hash != first.SessionHash || add.SecureNonce != create.Transactions.SecureNonce || len(add.Transactions) != 2 {
		t.Fatalf("unexpected add body: %+v", add)
	}

	expectQuiet(t, sink, 50*time.Millisecond)
	if engine.MetricsSnapshot().Counters[MetricTransactionsAdded] != 2 {
		t.Fatalf("expected 2 added transactions")
	}
}

func TestTransactAddUnknownSessionCreatesNew(t *testing.T) {
	engine, srv, sink := newTestEngine(t)
	srv.Script(flows.RouteTransactCreate, mediatortest.Created(mediatortest.Active{Hash: "tx-a"}))

	first, err := engine.Transact(context.Background(), sampleRequest("0a"), false)
	if err != nil {
		t.Fatal(err)
	}
	expectEvent(t, sink, EventSessionStarted)

	second, err := engine.Transact(context.Background(), sampleRequest("0b"), false)
	if err != nil {
		t.Fatalf("fallback create failed: %v", err)
	}
	if second.Added || second.SessionHash == first.SessionHash {
		t.Fatalf("expected a new session, got %+v", second)
	}
	if srv.Calls(flows.RouteTransactAdd) != 1 || srv.Calls(flows.RouteTransactCreate) != 2 {
		t.Fatalf("expected add then create")
	}

	ended := expectEvent(t, sink, EventSessionEnded)
	if ended.Payload.(SessionEvent).SessionHash != first.SessionHash {
		t.Fatalf("ended the wrong session")
	}
	started := expectEvent(t, sink, EventSessionStarted)
	if started.Payload.(SessionEvent).SessionHash != second.SessionHash {
		t.Fatalf("started the wrong session")
	}
	expectQuiet(t, sink, 50*time.Millisecond)
}

func TestTransactForceNewSession(t *testing.T) {
	engine, srv, sink := newTestEngine(t)
	srv.Script(flows.RouteTransactCreate, mediatortest.Created(mediatortest.Active{Hash: "tx-a"}))

	first, err := engine.Transact(context.Background(), sampleRequest("0a"), false)
	if err != nil {
		t.Fatal(err)
	}
	expectEvent(t, sink, EventSessionStarted)

	second, err := engine.Transact(context.Background(), sampleRequest("0a"), true)
	if err != nil {
		t.Fatal(err)
	}
	if second.SessionHash == first.SessionHash {
		t.Fatalf("forced session reused the hash")
	}
	if srv.Calls(flows.RouteTransactAdd) != 0 {
		t.Fatalf("forced session called add")
	}
	expectEvent(t, sink, EventSessionEnded)
	expectEvent(t, sink, EventSessionStarted)
}

func TestTransactChainsThroughSession(t *testing.T) {
	engine, srv, sink := newTestEngine(t)
	srv.Script(flows.RouteTransactCreate, mediatortest.Created(mediatortest.Active{Hash: "tx-a", Sequence: mediatortest.Seq(1)}))
	srv.Script(flows.RouteTransactResponse,
		mediatortest.Continue(),
		mediatortest.Signed("CHAIN1", &mediatortest.Active{Hash: "tx-b", Sequence: mediatortest.Seq(2)}),
		mediatortest.Continue(),
		mediatortest.Signed("CHAIN2", nil),
	)
	srv.Script(flows.RouteTransactNext, mediatortest.Continue(), mediatortest.Step(nil))

	data, err := engine.Transact(context.Background(), sampleRequest("0a", "0b"), false)
	if err != nil {
		t.Fatal(err)
	}

	expectEvent(t, sink, EventSessionStarted)

	ev := expectEvent(t, sink, EventTransactSuccess)
	res := ev.Payload.(TransactionResult)
	if res.TransactionHash != "CHAIN1" || res.Sequence != 1 || res.Next == nil || res.Next.Hash != "tx-b" {
		t.Fatalf("unexpected first result: %+v", res)
	}

	ev = expectEvent(t, sink, EventSessionNewTransaction)
	step := ev.Payload.(SessionEvent)
	if step.Sequence != 2 || step.Active == nil || step.Active.Hash != "tx-b" {
		t.Fatalf("unexpected new transaction: %+v", step)
	}

	ev = expectEvent(t, sink, EventTransactSuccess)
	res = ev.Payload.(TransactionResult)
	if res.TransactionHash != "CHAIN2" || res.Sequence != 2 || res.Next != nil {
		t.Fatalf("unexpected second result: %+v", res)
	}

	ev = expectEvent(t, sink, EventSessionEnded)
	final := ev.Payload.(SessionEvent)
	if final.SessionHash != data.SessionHash || final.Sequence != 2 || ev.Err != nil {
		t.Fatalf("unexpected end: %+v", ev)
	}
	expectQuiet(t, sink, 50*time.Millisecond)

	if _, ok := engine.Session(); ok {
		t.Fatalf("session survived its end")
	}

	var hashes []string
	for _, r := range srv.Requests(flows.RouteTransactResponse) {
		var body flows.PollBody
		if err := r.Decode(&body); err != nil {
			t.Fatal(err)
		}
		hashes = append(hashes, body.Hash)
	}
	if len(hashes) != 4 || hashes[0] != "tx-a" || hashes[1] != "tx-a" || hashes[2] != "tx-b" || hashes[3] != "tx-b" {
		t.Fatalf("unexpected response polls: %v", hashes)
	}
	var next flows.PollBody
	if err := srv.Requests(flows.RouteTransactNext)[0].Decode(&next); err != nil {
		t.Fatal(err)
	}
	if next.Hash != data.SessionHash {
		t.Fatalf("next route polled %q, want session hash", next.Hash)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricTransactSuccess] != 2 || snap.Counters[MetricSessionCreated] != 1 || snap.Counters[MetricSessionEnded] != 1 {
		t.Fatalf("unexpected counters: %+v", snap.Counters)
	}
}

func TestTransactNextStepContinuesSession(t *testing.T) {
	engine, srv, sink := newTestEngine(t)
	srv.Script(flows.RouteTransactCreate, mediatortest.Created(mediatortest.Active{Hash: "tx-a", Sequence: mediatortest.Seq(1)}))
	srv.Script(flows.RouteTransactResponse, mediatortest.Signed("CHAIN1", nil), mediatortest.Continue())
	srv.Script(flows.RouteTransactNext, mediatortest.Step(&mediatortest.Active{Hash: "tx-b"}))

	if _, err := engine.Transact(context.Background(), sampleRequest("0a"), false); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, sink, EventSessionStarted)
	expectEvent(t, sink, EventTransactSuccess)

	ev := expectEvent(t, sink, EventSessionNewTransaction)
	step := ev.Payload.(SessionEvent)
	if step.Sequence != 2 || step.Active.Hash != "tx-b" {
		t.Fatalf("expected undeclared sequence to advance by one, got %+v", step)
	}
	eventually(t, "polling the new transaction", func() bool {
		info, _ := engine.Session()
		return info.ActiveTransaction == "tx-b" && info.Polling
	})
}

func TestTransactTimeoutEndsSession(t *testing.T) {
	engine, srv, sink := newTestEngine(t, withPollTimeout(100*time.Millisecond))
	srv.Script(flows.RouteTransactCreate, mediatortest.Created(mediatortest.Active{Hash: "tx-a"}))

	if _, err := engine.Transact(context.Background(), sampleRequest("0a"), false); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, sink, EventSessionStarted)

	failed := expectEvent(t, sink, EventTransactError)
	if !failed.Timeout || failed.Message != MessageTimeout || !errors.Is(failed.Err, ErrPollTimeout) {
		t.Fatalf("unexpected failure: %+v", failed)
	}
	ended := expectEvent(t, sink, EventSessionEnded)
	if !ended.Timeout {
		t.Fatalf("expected end to carry the timeout")
	}
	expectQuiet(t, sink, 150*time.Millisecond)

	if _, ok := engine.Session(); ok {
		t.Fatalf("session survived timeout")
	}
}

func TestTransactDeclinedTransaction(t *testing.T) {
	engine, srv, sink := newTestEngine(t)
	srv.Script(flows.RouteTransactCreate, mediatortest.Created(mediatortest.Active{Hash: "tx-a"}))
	srv.Script(flows.RouteTransactResponse, mediatortest.Declined("Rejected by user"))

	if _, err := engine.Transact(context.Background(), sampleRequest("0a"), false); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, sink, EventSessionStarted)
	failed := expectEvent(t, sink, EventTransactError)
	if !errors.Is(failed.Err, ErrServerRejected) || failed.Message != "Rejected by user" {
		t.Fatalf("unexpected failure: %+v", failed)
	}
	expectEvent(t, sink, EventSessionEnded)
	expectQuiet(t, sink, 50*time.Millisecond)
}

func TestTransactNextFailureEndsWithoutTransactionError(t *testing.T) {
	engine, srv, sink := newTestEngine(t)
	srv.Script(flows.RouteTransactCreate, mediatortest.Created(mediatortest.Active{Hash: "tx-a"}))
	srv.Script(flows.RouteTransactResponse, mediatortest.Signed("CHAIN1", nil))
	srv.Script(flows.RouteTransactNext, mediatortest.Fail(500, "session lost"))

	if _, err := engine.Transact(context.Background(), sampleRequest("0a"), false); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, sink, EventSessionStarted)
	expectEvent(t, sink, EventTransactSuccess)
	ended := expectEvent(t, sink, EventSessionEnded)
	if !errors.Is(ended.Err, ErrServerRejected) || ended.Message != "session lost" {
		t.Fatalf("unexpected end: %+v", ended)
	}
	expectQuiet(t, sink, 50*time.Millisecond)
}

func TestTransactMalformedResultIsShapeError(t *testing.T) {
	engine, srv, sink := newTestEngine(t)
	srv.Script(flows.RouteTransactCreate, mediatortest.Created(mediatortest.Active{Hash: "tx-a"}))
	srv.Script(flows.RouteTransactResponse, mediatortest.Payload(map[string]any{"code": 5, "transactionHash": "X"}))

	if _, err := engine.Transact(context.Background(), sampleRequest("0a"), false); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, sink, EventSessionStarted)
	failed := expectEvent(t, sink, EventTransactError)
	if !errors.Is(failed.Err, ErrShapeValidation) {
		t.Fatalf("expected shape error, got %v", failed.Err)
	}
	expectEvent(t, sink, EventSessionEnded)
}

func TestTransactCreateFailureClearsSession(t *testing.T) {
	engine, srv, sink := newTestEngine(t)
	srv.Script(flows.RouteTransactCreate, mediatortest.Fail(500, "chain halted"))

	_, err := engine.Transact(context.Background(), sampleRequest("0a"), false)
	var se *ServerError
	if !errors.As(err, &se) || se.Message != "chain halted" {
		t.Fatalf("expected server error, got %v", err)
	}
	if _, ok := engine.Session(); ok {
		t.Fatalf("failed create left a session")
	}
	expectQuiet(t, sink, 50*time.Millisecond)

	srv.Reset(flows.RouteTransactCreate, mediatortest.OK(mediatortest.Result{}))
	_, err = engine.Transact(context.Background(), sampleRequest("0a"), false)
	if !errors.Is(err, ErrShapeValidation) {
		t.Fatalf("expected shape error for missing active transaction, got %v", err)
	}
	if srv.Calls(flows.RouteTransactAdd) != 0 {
		t.Fatalf("add called without a session")
	}
}

func TestTransactTransportFailure(t *testing.T) {
	engine, _, _ := newTestEngine(t, func(b *Builder) {
		b.WithTransport(transportFunc(func(context.Context, string, any) (*Envelope, error) {
			return nil, errUnreachable
		}))
	})

	_, err := engine.Transact(context.Background(), sampleRequest("0a"), false)
	if !errors.Is(err, ErrTransport) || !errors.Is(err, errUnreachable) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
	if _, ok := engine.Session(); ok {
		t.Fatalf("transport failure left a session")
	}
}

func TestTransactAddRejected(t *testing.T) {
	engine, srv, sink := newTestEngine(t)
	srv.Script(flows.RouteTransactCreate, mediatortest.Created(mediatortest.Active{Hash: "tx-a"}))
	srv.Script(flows.RouteTransactAdd, mediatortest.Fail(400, "batch too large"))

	if _, err := engine.Transact(context.Background(), sampleRequest("0a"), false); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, sink, EventSessionStarted)

	_, err := engine.Transact(context.Background(), sampleRequest("0b"), false)
	if !errors.Is(err, ErrServerRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if _, ok := engine.Session(); !ok {
		t.Fatalf("rejected add must keep the session")
	}
	expectQuiet(t, sink, 50*time.Millisecond)
}
