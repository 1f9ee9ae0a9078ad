package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	domainevents "mort/domain/events"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	log "github.com/sirupsen/logrus"
)

// LogSubscriber is the subset of the RPC client the supervisor needs.
// *ethclient.Client satisfies it.
type LogSubscriber interface {
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Dialer opens a fresh transport connection. Called once per reconnect
// attempt so a dead websocket is never reused.
type Dialer func(ctx context.Context) (LogSubscriber, error)

// SupervisorState is the subscription lifecycle state
type SupervisorState int32

const (
	StateDisconnected SupervisorState = iota
	StateConnecting
	StateSubscribed
)

// Supervisor owns the chain subscription lifecycle: it establishes one
// subscription per watched event kind, tears all of them down when any one
// errors (they share the underlying transport), and reconnects with
// exponential backoff. It retries indefinitely for the life of the process.
type Supervisor struct {
	dial      Dialer
	contracts Contracts
	baseDelay time.Duration
	maxDelay  time.Duration

	out       chan domainevents.Event
	lastBlock uint64
	state     atomic.Int32

	// sleep is a hook so backoff timing is testable without a clock
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSupervisor creates a supervisor; Run starts it
func NewSupervisor(dial Dialer, contracts Contracts, baseDelay, maxDelay time.Duration) *Supervisor {
	return &Supervisor{
		dial:      dial,
		contracts: contracts,
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
		out:       make(chan domainevents.Event, 64),
		sleep:     sleepCtx,
	}
}

// Events is the stream of decoded game events. Closed when Run returns.
func (s *Supervisor) Events() <-chan domainevents.Event {
	return s.out
}

// State reports the current subscription lifecycle state
func (s *Supervisor) State() SupervisorState {
	return SupervisorState(s.state.Load())
}

func (s *Supervisor) setState(st SupervisorState) {
	s.state.Store(int32(st))
}

// watchedQueries returns one filter per watched event kind: flip resolution,
// RPS result, lucky-number ready and lucky-number result.
func (s *Supervisor) watchedQueries() []ethereum.FilterQuery {
	return []ethereum.FilterQuery{
		{
			Addresses: []common.Address{s.contracts.Flip},
			Topics:    [][]common.Hash{{flipABI.Events["FlipResolved"].ID}},
		},
		{
			Addresses: []common.Address{s.contracts.RPS},
			Topics:    [][]common.Hash{{rpsABI.Events["GameResult"].ID}},
		},
		{
			Addresses: []common.Address{s.contracts.Lucky},
			Topics:    [][]common.Hash{{luckyABI.Events["GameReady"].ID}},
		},
		{
			Addresses: []common.Address{s.contracts.Lucky},
			Topics:    [][]common.Hash{{luckyABI.Events["GameResult"].ID}},
		},
	}
}

// Run drives the reconnect loop until ctx is cancelled
func (s *Supervisor) Run(ctx context.Context) {
	defer close(s.out)

	delay := s.baseDelay
	for {
		if ctx.Err() != nil {
			return
		}

		err := s.connectAndPump(ctx)
		if ctx.Err() != nil {
			return
		}

		if err == errSessionEnded {
			// We reached Subscribed before dropping; backoff restarts
			// from the base delay.
			delay = s.baseDelay
		}

		log.WithField("delay", delay).Warn("Chain subscription lost, reconnecting")
		if s.sleep(ctx, delay) != nil {
			return
		}
		delay *= 2
		if delay > s.maxDelay {
			delay = s.maxDelay
		}
	}
}

// errSessionEnded distinguishes a drop after a healthy Subscribed state from
// a failure during connection setup.
var errSessionEnded = fmt.Errorf("subscription session ended")

// connectAndPump dials, establishes all subscriptions, backfills the outage
// window and pumps logs until something breaks. All four subscriptions must
// come up before the connection counts as healthy.
func (s *Supervisor) connectAndPump(ctx context.Context) error {
	s.setState(StateConnecting)
	defer s.setState(StateDisconnected)
	log.Info("Connecting chain event subscriptions")

	client, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}

	queries := s.watchedQueries()
	logCh := make(chan types.Log, 256)

	subs := make([]ethereum.Subscription, 0, len(queries))
	teardown := func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}

	for _, q := range queries {
		sub, err := client.SubscribeFilterLogs(ctx, q, logCh)
		if err != nil {
			teardown()
			return fmt.Errorf("failed to subscribe: %w", err)
		}
		subs = append(subs, sub)
	}
	defer teardown()

	// Replay anything emitted while we were away. Pending records stay
	// pending through an outage, and the reconciler is idempotent, so
	// replaying an overlap is safe.
	if s.lastBlock > 0 {
		if err := s.backfill(ctx, client, queries); err != nil {
			return fmt.Errorf("failed to backfill: %w", err)
		}
	}

	s.setState(StateSubscribed)
	log.Info("Chain event subscriptions active")

	errCases := make([]<-chan error, len(subs))
	for i, sub := range subs {
		errCases[i] = sub.Err()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case lg := <-logCh:
			s.emit(ctx, lg)
		case err := <-errCases[0]:
			return s.dropped(err)
		case err := <-errCases[1]:
			return s.dropped(err)
		case err := <-errCases[2]:
			return s.dropped(err)
		case err := <-errCases[3]:
			return s.dropped(err)
		}
	}
}

func (s *Supervisor) dropped(err error) error {
	log.WithError(err).Error("Chain subscription error, tearing down connection")
	return errSessionEnded
}

func (s *Supervisor) backfill(ctx context.Context, client LogSubscriber, queries []ethereum.FilterQuery) error {
	from := new(big.Int).SetUint64(s.lastBlock + 1)
	for _, q := range queries {
		q.FromBlock = from
		logs, err := client.FilterLogs(ctx, q)
		if err != nil {
			return err
		}
		for _, lg := range logs {
			s.emit(ctx, lg)
		}
	}
	return nil
}

func (s *Supervisor) emit(ctx context.Context, lg types.Log) {
	if lg.Removed {
		return
	}
	if lg.BlockNumber > s.lastBlock {
		s.lastBlock = lg.BlockNumber
	}

	event, err := DecodeLog(s.contracts, lg)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"address": lg.Address.Hex(),
			"tx":      lg.TxHash.Hex(),
		}).Error("Failed to decode chain log")
		return
	}
	if event == nil {
		return
	}

	select {
	case s.out <- event:
	case <-ctx.Done():
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
