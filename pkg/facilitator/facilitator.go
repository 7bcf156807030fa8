package facilitator

import (
	"context"
	"log/slog"
	"time"

	"github.com/x402wire/facilitator/pkg/chains"
	"github.com/x402wire/facilitator/pkg/constants"
	"github.com/x402wire/facilitator/pkg/metrics"
	"github.com/x402wire/facilitator/pkg/types"
)

// Facilitator routes verification and settlement requests to the chain
// adapter registered for the requirements' network. Dispatch goes through the
// registry only; an unknown network is rejected here, never handed to a
// default family.
type Facilitator struct {
	registry *chains.Registry
	recorder metrics.Recorder
	logger   *slog.Logger
}

// Option configures a Facilitator.
type Option func(*Facilitator)

// WithRegistry uses a specific adapter registry instead of the global one.
func WithRegistry(registry *chains.Registry) Option {
	return func(f *Facilitator) {
		f.registry = registry
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(f *Facilitator) {
		f.recorder = recorder
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Facilitator) {
		f.logger = logger
	}
}

// New creates a Facilitator. Defaults: the global registry (initialized here
// if no chain init ran yet, so dispatch degrades to invalid_network instead of
// panicking), a no-op metrics recorder, and slog's default logger.
func New(opts ...Option) *Facilitator {
	f := &Facilitator{
		registry: chains.InitGlobalRegistry(),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Verify checks a payment payload against the requirements on the
// requirements' network.
func (f *Facilitator) Verify(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) *types.VerifyResponse {
	if payload == nil || requirements == nil {
		return types.Invalid(types.ReasonInvalidPayload)
	}
	if err := requirements.Validate(); err != nil {
		f.logger.Warn("rejecting malformed requirements", "error", err)
		return types.Invalid(types.ReasonInvalidPayload)
	}

	adapter, err := f.registry.Get(requirements.Network)
	if err != nil {
		f.recorder.IncCounter("verify_unsupported_network", labels(requirements.Network))
		return types.Invalid(types.ReasonInvalidNetwork)
	}

	start := time.Now()
	resp := adapter.Verify(ctx, payload, requirements)
	f.recorder.ObserveLatency("verify", time.Since(start), labels(requirements.Network))

	if resp.IsValid {
		f.recorder.IncCounter("verify_ok", labels(requirements.Network))
	} else {
		f.recorder.IncCounter("verify_rejected", labels(requirements.Network))
		f.logger.Info("payment rejected",
			"network", requirements.Network, "reason", resp.InvalidReason)
	}
	return resp
}

// Settle submits a payment payload to the requirements' network and confirms
// it landed. Settlement is not idempotent; callers must not blindly retry an
// ambiguous outcome.
func (f *Facilitator) Settle(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) *types.SettleResponse {
	if payload == nil || requirements == nil {
		return types.SettleFailure("", "", "", types.ReasonInvalidPayload)
	}
	if err := requirements.Validate(); err != nil {
		f.logger.Warn("rejecting malformed requirements", "error", err)
		return types.SettleFailure(requirements.Network, "", "", types.ReasonInvalidPayload)
	}

	adapter, err := f.registry.Get(requirements.Network)
	if err != nil {
		f.recorder.IncCounter("settle_unsupported_network", labels(requirements.Network))
		return types.SettleFailure(requirements.Network, "", "", types.ReasonInvalidNetwork)
	}

	start := time.Now()
	resp := adapter.Settle(ctx, payload, requirements)
	f.recorder.ObserveLatency("settle", time.Since(start), labels(requirements.Network))

	if resp.Success {
		f.recorder.IncCounter("settle_ok", labels(requirements.Network))
		f.logger.Info("payment settled",
			"network", requirements.Network, "tx", resp.Transaction, "payer", resp.Payer)
	} else {
		f.recorder.IncCounter("settle_failed", labels(requirements.Network))
		f.logger.Warn("settlement failed",
			"network", requirements.Network, "reason", resp.ErrorReason, "tx", resp.Transaction)
	}
	return resp
}

// Supported lists the scheme/network combinations the facilitator can
// currently serve.
func (f *Facilitator) Supported() *types.SupportedResponse {
	networks := f.registry.GetSupportedNetworks()
	kinds := make([]types.SupportedItem, 0, len(networks))
	for _, network := range networks {
		kinds = append(kinds, types.SupportedItem{
			X402Version: constants.X402Version,
			Scheme:      constants.SchemeExact,
			Network:     network,
		})
	}
	return &types.SupportedResponse{Kinds: kinds}
}

func labels(network string) map[string]string {
	return map[string]string{"network": network}
}
