package signx

import (
	"context"

	"github.com/MrEthical07/signx/internal/flows"
	"github.com/MrEthical07/signx/internal/poll"
)

// oneShotFlow maps a single-cycle flow onto its events and counters.
type oneShotFlow struct {
	name          string
	success       EventName
	failure       EventName
	successMetric MetricID
	failureMetric MetricID
	payload       func(v any) any
}

var (
	loginFlow = oneShotFlow{
		name:          "login",
		success:       EventLoginSuccess,
		failure:       EventLoginError,
		successMetric: MetricLoginSuccess,
		failureMetric: MetricLoginFailure,
		payload: func(v any) any {
			p := v.(flows.LoginPayload)
			return LoginResult{Address: p.Address, PubKey: p.PubKey, DID: p.DID}
		},
	}
	matrixLoginFlow = oneShotFlow{
		name:          "matrix_login",
		success:       EventMatrixLoginSuccess,
		failure:       EventMatrixLoginError,
		successMetric: MetricMatrixLoginSuccess,
		failureMetric: MetricMatrixLoginFailure,
		payload: func(v any) any {
			return MatrixLoginResult{AccessToken: v.(flows.MatrixLoginPayload).AccessToken}
		},
	}
	dataFlow = oneShotFlow{
		name:          "data",
		success:       EventDataSuccess,
		failure:       EventDataError,
		successMetric: MetricDataPassSuccess,
		failureMetric: MetricDataPassFailure,
		payload: func(v any) any {
			return DataResult{Response: v.(flows.DataResponsePayload).Response}
		},
	}
)

// resolve emits the terminal event of a single-cycle flow. A cycle that lost its
// claim to StopPolling stays silent.
func (e *Engine) resolve(f oneShotFlow) poll.Handler {
	return func(res poll.Result) {
		if !res.Cycle.Claim() {
			return
		}
		if res.Err != nil {
			e.metrics.Inc(f.failureMetric)
			e.logger.Warn().Err(res.Err).Str("flow", f.name).Bool("timeout", res.TimedOut()).Msg("flow failed")
			e.emit(failureEvent(f.failure, res))
			return
		}
		e.metrics.Inc(f.successMetric)
		e.logger.Info().Str("flow", f.name).Str("cycle", res.Cycle.ID.String()).Msg("flow approved")
		e.emit(cycleEvent(f.success, res, f.payload(res.Value)))
	}
}

// Login starts a login and returns the material for its deeplink. The outcome arrives
// as SIGN_X_LOGIN_SUCCESS (Payload LoginResult) or SIGN_X_LOGIN_ERROR. ctx only
// bounds this call, not the poll cycle.
func (e *Engine) Login(ctx context.Context, opts LoginOptions) (*LoginData, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, nonce, secureHash, err := newChallenge()
	if err != nil {
		return nil, err
	}

	cycle, err := e.poller.Start(poll.Spec{
		Route:    flows.RouteLoginFetch,
		Body:     flows.PollBody{Hash: hash, SecureNonce: nonce},
		Interval: opts.PollingInterval,
		Timeout:  opts.Timeout,
		Decode:   flows.Decoder(flows.DecodeLogin),
	}, e.resolve(loginFlow))
	if err != nil {
		return nil, startError(err)
	}
	e.metrics.Inc(MetricLoginStarted)
	e.logger.Debug().Str("cycle", cycle.ID.String()).Msg("login started")

	return &LoginData{
		Hash:       hash,
		SecureHash: secureHash,
		Type:       TypeLogin,
		Sitename:   e.config.Sitename,
		Timeout:    formatDeadline(cycle.Deadline),
		Network:    e.config.Network,
		Version:    flows.LoginVersion,
	}, nil
}

// MatrixLogin is Login for matrix credentials. Success carries MatrixLoginResult.
func (e *Engine) MatrixLogin(ctx context.Context, opts MatrixLoginOptions) (*MatrixLoginData, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, nonce, secureHash, err := newChallenge()
	if err != nil {
		return nil, err
	}

	cycle, err := e.poller.Start(poll.Spec{
		Route:    flows.RouteMatrixLoginFetch,
		Body:     flows.PollBody{Hash: hash, SecureNonce: nonce},
		Interval: opts.PollingInterval,
		Timeout:  opts.Timeout,
		Decode:   flows.Decoder(flows.DecodeMatrixLogin),
	}, e.resolve(matrixLoginFlow))
	if err != nil {
		return nil, startError(err)
	}
	e.metrics.Inc(MetricMatrixLoginStarted)
	e.logger.Debug().Str("cycle", cycle.ID.String()).Msg("matrix login started")

	return &MatrixLoginData{
		Hash:       hash,
		SecureHash: secureHash,
		Type:       TypeMatrixLogin,
		Sitename:   e.config.Sitename,
		Timeout:    formatDeadline(cycle.Deadline),
		Network:    e.config.Network,
		Version:    flows.MatrixLoginVersion,
	}, nil
}
