package signx

import (
	"context"

	"github.com/MrEthical07/signx/internal/flows"
	"github.com/MrEthical07/signx/internal/poll"
	"github.com/MrEthical07/signx/internal/secure"
)

func (r TransactRequest) input() flows.TransactInput {
	in := flows.TransactInput{
		Address:      r.Address,
		DID:          r.DID,
		PubKey:       r.PubKey,
		Timestamp:    r.Timestamp,
		Transactions: make([]flows.Transaction, len(r.Transactions)),
	}
	for i, tx := range r.Transactions {
		in.Transactions[i] = flows.Transaction{TxBodyHex: tx.TxBodyHex, Sequence: tx.Sequence}
	}
	return in
}

// Transact submits a batch for signing.
//
// Without a session, or with forceNewSession, it opens a new session: the previous
// one is ended, /transaction/v2/create is called once and polling starts on the
// first active transaction. The returned TransactData must be rendered as a new
// deeplink.
//
// With a session it adds the batch to it instead and leaves polling undisturbed
// (TransactData.Added). If the mediator no longer knows the session the call falls
// back to opening a new one.
//
// Progress arrives as events: SIGN_X_TRANSACT_SESSION_STARTED, then per transaction
// SIGN_X_TRANSACT_SUCCESS or SIGN_X_TRANSACT_ERROR, SIGN_X_TRANSACT_SESSION_NEW_TRANSACTION
// when the next one becomes active, and exactly one SIGN_X_TRANSACT_SESSION_ENDED.
// Calls are serialized per Engine.
func (e *Engine) Transact(ctx context.Context, req TransactRequest, forceNewSession bool) (*TransactData, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	in := req.input()
	items, err := flows.PrepareItems(in)
	if err != nil {
		return nil, err
	}

	e.txMu.Lock()
	defer e.txMu.Unlock()

	e.mu.Lock()
	hash, nonce, epoch := e.session.hash, e.session.nonce, e.session.epoch
	e.mu.Unlock()

	if hash != "" && !forceNewSession {
		data, create, err := e.addTransactions(ctx, hash, nonce, epoch, items)
		if !create {
			return data, err
		}
	}
	return e.createSession(ctx, in, items)
}

// addTransactions posts items to the running session. create reports that the
// mediator answered with the continue code, meaning it no longer knows the session.
func (e *Engine) addTransactions(ctx context.Context, hash, nonce string, epoch uint64, items []flows.Item) (data *TransactData, create bool, err error) {
	env, err := e.transport.Post(ctx, flows.RouteTransactAdd, flows.TransactionBatch{
		Hash:         hash,
		SecureNonce:  nonce,
		Transactions: items,
	})
	if err != nil {
		return nil, false, requestError(flows.RouteTransactAdd, err)
	}
	if !env.Success {
		if env.Code == CodeContinue {
			e.logger.Info().Str("session", hash).Msg("session unknown to mediator, opening a new one")
			return nil, true, nil
		}
		return nil, false, rejected(flows.RouteTransactAdd, env, "Transaction addition failed")
	}
	add, err := flows.DecodeAddition(env.Data)
	if err != nil {
		return nil, false, err
	}

	e.mu.Lock()
	if e.session.epoch != epoch {
		e.mu.Unlock()
		return nil, false, ErrSessionSuperseded
	}
	if add.Active != nil {
		e.session.report(add.Active)
	}
	if e.session.halted && e.session.active != "" {
		e.session.halted = false
		if _, err := e.armLocked(flows.RouteTransactResponse, e.session.active); err != nil {
			ended := e.endSessionLocked()
			e.mu.Unlock()
			e.sessionAborted(ended, err)
			return nil, false, startError(err)
		}
	}
	info := e.session.info()
	e.mu.Unlock()

	e.metrics.Add(MetricTransactionsAdded, uint64(len(items)))
	e.logger.Debug().Str("session", hash).Int("transactions", len(items)).Int("sequence", info.Sequence).Msg("transactions added")

	out := e.transactData(info)
	out.Added = true
	out.ShowQR = add.ShowQR
	return out, false, nil
}

// createSession opens a new session for items, ending any previous one first.
func (e *Engine) createSession(ctx context.Context, in flows.TransactInput, items []flows.Item) (*TransactData, error) {
	nonce, err := secure.NewHash()
	if err != nil {
		return nil, err
	}
	sessionHash := secure.SecureHash(items[0].Hash, nonce)

	e.emitMu.Lock()
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.emitMu.Unlock()
		return nil, ErrEngineClosed
	}
	previous := e.endSessionLocked()
	e.epoch++
	epoch := e.epoch
	e.session = sessionState{
		hash:     sessionHash,
		nonce:    nonce,
		sequence: 1,
		epoch:    epoch,
	}
	e.mu.Unlock()
	if previous != nil {
		e.emitSessionEnded(*previous, Event{Message: "SUPERSEDED"})
	}
	e.emitMu.Unlock()

	env, err := e.transport.Post(ctx, flows.RouteTransactCreate, flows.NewTransactCreateBody(in, sessionHash, nonce, items))
	var created flows.SessionCreated
	switch {
	case err != nil:
		err = requestError(flows.RouteTransactCreate, err)
	case !env.Success:
		err = rejected(flows.RouteTransactCreate, env, "Transaction creation failed")
	default:
		created, err = flows.DecodeSessionCreated(env.Data)
	}
	if err != nil {
		e.abandon(epoch)
		e.logger.Warn().Err(err).Msg("transact session creation failed")
		return nil, err
	}

	e.emitMu.Lock()
	e.mu.Lock()
	if e.session.epoch != epoch {
		e.mu.Unlock()
		e.emitMu.Unlock()
		return nil, ErrSessionSuperseded
	}
	e.session.started = true
	e.session.active = created.Active.Hash
	if created.Active.Sequence != nil {
		e.session.raise(*created.Active.Sequence)
	}
	started := e.session.event()
	e.mu.Unlock()

	e.metrics.Inc(MetricSessionCreated)
	e.logger.Info().Str("session", sessionHash).Int("transactions", len(items)).Msg("transact session started")
	e.emit(Event{
		Name:    EventSessionStarted,
		Route:   flows.RouteTransactCreate,
		Data:    env.Data,
		Payload: started,
	})
	e.emitMu.Unlock()

	e.mu.Lock()
	if e.session.epoch != epoch {
		e.mu.Unlock()
		return nil, ErrSessionSuperseded
	}
	cycle, err := e.armLocked(flows.RouteTransactResponse, created.Active.Hash)
	if err != nil {
		ended := e.endSessionLocked()
		e.mu.Unlock()
		e.sessionAborted(ended, err)
		return nil, startError(err)
	}
	info := e.session.info()
	e.mu.Unlock()

	out := e.transactData(info)
	out.Timeout = formatDeadline(cycle.Deadline)
	return out, nil
}

func (e *Engine) transactData(info SessionInfo) *TransactData {
	out := &TransactData{
		Hash:        info.SessionHash,
		SessionHash: info.SessionHash,
		Type:        TypeTransact,
		Sitename:    e.config.Sitename,
		Network:     e.config.Network,
		Version:     flows.TransactVersion,
	}
	if info.ActiveTransaction != "" {
		out.ActiveTransaction = &ActiveTransaction{Hash: info.ActiveTransaction, Sequence: info.Sequence}
	}
	return out
}

// abandon clears a session whose creation failed, unless it was already replaced.
func (e *Engine) abandon(epoch uint64) {
	e.mu.Lock()
	if e.session.epoch == epoch {
		e.endSessionLocked()
	}
	e.mu.Unlock()
}

// endSessionLocked cancels the owned cycle and clears the session. It returns the
// final state of a started session, nil otherwise.
func (e *Engine) endSessionLocked() *SessionEvent {
	s := e.session
	if s.cycle != nil {
		s.cycle.Cancel()
	}
	e.session = sessionState{}
	if !s.started {
		return nil
	}
	ev := s.event()
	return &ev
}

// armLocked starts the session's next cycle on route, keyed by hash.
func (e *Engine) armLocked(route, hash string) (*poll.Cycle, error) {
	var decode poll.Decoder
	switch route {
	case flows.RouteTransactResponse:
		decode = flows.Decoder(flows.DecodeTransactionResult)
	default:
		decode = flows.Decoder(flows.DecodeSessionStep)
	}
	cycle, err := e.poller.Start(poll.Spec{
		Route:  route,
		Body:   flows.PollBody{Hash: hash, SecureNonce: e.session.nonce},
		Decode: decode,
	}, e.onSessionResult(e.session.epoch))
	if err != nil {
		return nil, err
	}
	e.session.cycle = cycle
	return cycle, nil
}

// rearm arms the next cycle unless the session changed, already polls or was halted
// since the previous cycle resolved. An empty hash means the session hash.
func (e *Engine) rearm(epoch uint64, route, hash string) {
	e.mu.Lock()
	if e.session.epoch != epoch || e.session.cycle != nil || e.session.halted {
		e.mu.Unlock()
		return
	}
	if hash == "" {
		hash = e.session.hash
	}
	if _, err := e.armLocked(route, hash); err != nil {
		ended := e.endSessionLocked()
		e.mu.Unlock()
		e.sessionAborted(ended, err)
		return
	}
	e.mu.Unlock()
}

func (e *Engine) onSessionResult(epoch uint64) poll.Handler {
	return func(res poll.Result) {
		e.mu.Lock()
		if e.session.epoch != epoch || e.session.cycle != res.Cycle || !res.Cycle.Claim() {
			e.mu.Unlock()
			return
		}
		e.session.cycle = nil
		if res.Err != nil {
			ended := e.endSessionLocked()
			e.mu.Unlock()
			e.sessionFailed(res, ended)
			return
		}
		e.mu.Unlock()

		switch v := res.Value.(type) {
		case flows.TransactionResult:
			e.transactionSigned(epoch, res, v)
		case flows.SessionStep:
			e.sessionStepped(epoch, res, v)
		}
	}
}

// transactionSigned reports a signed transaction unless the session ended after the
// cycle was claimed; a session's events never follow its SESSION_ENDED.
func (e *Engine) transactionSigned(epoch uint64, res poll.Result, v flows.TransactionResult) {
	e.emitMu.Lock()
	e.mu.Lock()
	if e.session.epoch != epoch {
		e.mu.Unlock()
		e.emitMu.Unlock()
		return
	}
	seq := e.session.sequence
	e.mu.Unlock()

	e.metrics.Inc(MetricTransactSuccess)
	e.logger.Info().Str("tx_hash", v.TransactionHash).Int("sequence", seq).Msg("transaction signed")
	e.emit(cycleEvent(EventTransactSuccess, res, TransactionResult{
		TransactionHash: v.TransactionHash,
		Sequence:        seq,
		Next:            publicActive(v.Active),
	}))
	e.emitMu.Unlock()

	if v.Active == nil {
		e.rearm(epoch, flows.RouteTransactNext, "")
		return
	}
	e.nextTransaction(epoch, res, v.Active)
}

func (e *Engine) sessionStepped(epoch uint64, res poll.Result, v flows.SessionStep) {
	if v.Active != nil {
		e.nextTransaction(epoch, res, v.Active)
		return
	}

	e.mu.Lock()
	if e.session.epoch != epoch {
		e.mu.Unlock()
		return
	}
	ended := e.endSessionLocked()
	e.mu.Unlock()
	if ended != nil {
		e.emitSessionEnded(*ended, Event{
			CycleID: res.Cycle.ID.String(),
			Route:   res.Cycle.Route,
			Data:    res.Data,
		})
	}
}

// nextTransaction advances the session to active and polls for its response.
func (e *Engine) nextTransaction(epoch uint64, res poll.Result, active *flows.ActiveTransaction) {
	e.emitMu.Lock()
	e.mu.Lock()
	if e.session.epoch != epoch || e.session.cycle != nil || e.session.halted {
		e.mu.Unlock()
		e.emitMu.Unlock()
		return
	}
	e.session.advance(active)
	ev := e.session.event()
	e.mu.Unlock()

	e.logger.Debug().Str("session", ev.SessionHash).Int("sequence", ev.Sequence).Msg("next transaction active")
	e.emit(cycleEvent(EventSessionNewTransaction, res, ev))
	e.emitMu.Unlock()
	e.rearm(epoch, flows.RouteTransactResponse, active.Hash)
}

// sessionFailed reports a failed session cycle: SIGN_X_TRANSACT_ERROR for a
// transaction response, then the end of the session.
func (e *Engine) sessionFailed(res poll.Result, ended *SessionEvent) {
	e.logger.Warn().Err(res.Err).Str("route", res.Cycle.Route).Bool("timeout", res.TimedOut()).Msg("transact session failed")
	if res.Cycle.Route == flows.RouteTransactResponse {
		e.metrics.Inc(MetricTransactFailure)
		e.emit(failureEvent(EventTransactError, res))
	}
	if ended != nil {
		e.emitSessionEnded(*ended, failureEvent(EventSessionEnded, res))
	}
}

// sessionAborted ends a session whose next cycle could not start.
func (e *Engine) sessionAborted(ended *SessionEvent, err error) {
	if ended == nil {
		return
	}
	e.emitSessionEnded(*ended, Event{Err: startError(err), Message: startError(err).Error()})
}

// emitSessionEnded emits SIGN_X_TRANSACT_SESSION_ENDED for final, taking cycle,
// error and message fields from base.
func (e *Engine) emitSessionEnded(final SessionEvent, base Event) {
	base.Name = EventSessionEnded
	base.Payload = final
	e.metrics.Inc(MetricSessionEnded)
	e.logger.Info().Str("session", final.SessionHash).Int("sequence", final.Sequence).Str("reason", base.Message).Msg("transact session ended")
	e.emit(base)
}
