package signx

import (
	"context"
	"fmt"

	"github.com/MrEthical07/signx/internal/flows"
	"github.com/MrEthical07/signx/internal/poll"
	"github.com/MrEthical07/signx/internal/secure"
)

// DataPass encrypts opts.Data under a fresh one-time key, registers it with the
// mediator and polls for the device's response. The registration must succeed on
// the first attempt. The returned DataPassData carries the key; the outcome arrives
// as SIGN_X_DATA_SUCCESS (Payload DataResult) or SIGN_X_DATA_ERROR.
func (e *Engine) DataPass(ctx context.Context, opts DataPassOptions) (*DataPassData, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if opts.DataType == "" {
		return nil, ErrDataTypeMissing
	}
	if opts.Data == nil {
		return nil, ErrDataMissing
	}

	hash, nonce, secureHash, err := newChallenge()
	if err != nil {
		return nil, err
	}
	key, err := secure.NewHash()
	if err != nil {
		return nil, err
	}
	blob, err := secure.EncryptJSON(opts.Data, key)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt data: %w", ErrInvalidInput, err)
	}

	env, err := e.transport.Post(ctx, flows.RouteDataCreate, flows.DataCreateBody{
		Hash:        hash,
		SecureNonce: nonce,
		Type:        opts.DataType,
		Data:        blob,
	})
	if err != nil {
		return nil, requestError(flows.RouteDataCreate, err)
	}
	if !env.Success {
		return nil, rejected(flows.RouteDataCreate, env, "Data creation failed")
	}

	cycle, err := e.poller.Start(poll.Spec{
		Route:    flows.RouteDataResponse,
		Body:     flows.PollBody{Hash: hash, SecureNonce: nonce},
		Interval: opts.PollingInterval,
		Timeout:  opts.Timeout,
		Decode:   flows.Decoder(flows.DecodeDataResponse),
	}, e.resolve(dataFlow))
	if err != nil {
		return nil, startError(err)
	}
	e.metrics.Inc(MetricDataPassStarted)
	e.logger.Debug().Str("cycle", cycle.ID.String()).Str("data_type", opts.DataType).Msg("data exchange started")

	return &DataPassData{
		Hash:       hash,
		SecureHash: secureHash,
		Key:        key,
		Type:       TypeData,
		DataType:   opts.DataType,
		Sitename:   e.config.Sitename,
		Timeout:    formatDeadline(cycle.Deadline),
		Network:    e.config.Network,
		Version:    flows.DataVersion,
	}, nil
}
