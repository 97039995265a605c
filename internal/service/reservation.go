// Package service contains the seat reservation and booking engine. The
// engine holds no locks and caches no seat state: every operation is a
// short-lived unit of work that computes its timestamps once, runs the
// lazy expiry sweep, and then delegates correctness to a single atomic
// store operation. The stores are reached through the narrow interfaces
// below so the shared show ledger can only be mutated through them.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/movie-seat-booking/internal/model"
	"github.com/iliyamo/movie-seat-booking/internal/repository"
)

// Defaults for the hold TTL and the per-user hold cap. Both can be
// overridden through the service options.
const (
	DefaultHoldTTL  = 120 * time.Second
	DefaultMaxHolds = 6
)

// Validation errors. None of them cause any mutation.
var (
	ErrNoSeats       = errors.New("no seats provided")
	ErrTooManySeats  = errors.New("too many seats requested")
	ErrDuplicateSeat = errors.New("duplicate seat in request")
	ErrInvalidSeat   = errors.New("seat number out of range")
)

// ShowStore is the read access the engine needs to shows.
type ShowStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Show, error)
}

// SeatLedger is the seat ledger of a show: temporary holds and the
// permanently booked set. Claim must be atomic with its predicate and
// linearize concurrent claims on the same (show, seat); the remaining
// methods are single-statement operations. Implemented by
// repository.SeatLedgerRepo.
type SeatLedger interface {
	PurgeExpired(ctx context.Context, showID uint64, cutoff time.Time) (int64, error)
	Claim(ctx context.Context, hold model.SeatHold, cutoff time.Time, maxHolds int) error
	Release(ctx context.Context, showID, userID uint64, seat uint32) (bool, error)
	ReleaseAll(ctx context.Context, showID, userID uint64) (int64, error)
	SeatView(ctx context.Context, showID uint64, seat uint32) (repository.SeatView, error)
	HeldCount(ctx context.Context, showID, userID uint64, cutoff time.Time) (int, error)
}

// BookingStore promotes holds into a booking in one all-or-nothing
// transaction. Implemented by repository.BookingRepo.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking, cutoff time.Time) error
}

// ReservationService orchestrates reserve, release and book operations.
// It owns the single time source per operation: now is read once and the
// derived cutoff is used for the sweep, the claim predicate and the
// held-set check alike, so they can never disagree about which holds
// are expired.
type ReservationService struct {
	shows    ShowStore
	ledger   SeatLedger
	bookings BookingStore
	ttl      time.Duration
	maxHolds int
	now      func() time.Time
	newID    func() string
}

// Option customises a ReservationService.
type Option func(*ReservationService)

// WithHoldTTL overrides the hold time-to-live.
func WithHoldTTL(ttl time.Duration) Option {
	return func(s *ReservationService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMaxHolds overrides the per-user unexpired hold cap.
func WithMaxHolds(n int) Option {
	return func(s *ReservationService) {
		if n > 0 {
			s.maxHolds = n
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *ReservationService) { s.now = now }
}

// WithIDAllocator overrides the booking ID allocator. Intended for tests.
func WithIDAllocator(newID func() string) Option {
	return func(s *ReservationService) { s.newID = newID }
}

// NewReservationService constructs the engine. All stores must be non-nil.
func NewReservationService(shows ShowStore, ledger SeatLedger, bookings BookingStore, opts ...Option) *ReservationService {
	if shows == nil || ledger == nil || bookings == nil {
		panic("nil store passed to NewReservationService")
	}
	s := &ReservationService{
		shows:    shows,
		ledger:   ledger,
		bookings: bookings,
		ttl:      DefaultHoldTTL,
		maxHolds: DefaultMaxHolds,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HoldTTL returns the configured hold time-to-live.
func (s *ReservationService) HoldTTL() time.Duration { return s.ttl }

// sweep purges expired holds for the show. The sweep is best-effort:
// a failure is logged and the caller proceeds, because every expiry
// comparison downstream uses the cutoff and never relies on expired
// rows having been physically removed.
func (s *ReservationService) sweep(ctx context.Context, showID uint64, cutoff time.Time) {
	if _, err := s.ledger.PurgeExpired(ctx, showID, cutoff); err != nil {
		log.Printf("sweep: purge expired holds for show %d failed: %v", showID, err)
	}
}

// Sweep runs the expiry sweeper for a show using the service clock. It
// is exposed for read paths (the public seat-state endpoint) that want
// a fresh view before rendering.
func (s *ReservationService) Sweep(ctx context.Context, showID uint64) {
	now := s.now().UTC()
	s.sweep(ctx, showID, now.Add(-s.ttl))
}

// Reserve claims one seat for the user. It sweeps, then performs the
// single atomic conditional write; on success the new hold is returned.
// On a rejected claim it re-reads the seat to report the most likely
// cause, in priority order: already booked, already held, hold cap
// reached, then a generic conflict. The diagnosis is advisory only;
// no double-claim can result from it being stale.
func (s *ReservationService) Reserve(ctx context.Context, showID, userID uint64, seat uint32) (*model.SeatHold, error) {
	show, err := s.shows.GetByID(ctx, showID)
	if err != nil {
		return nil, err
	}
	if seat == 0 || seat > show.SeatCount {
		return nil, ErrInvalidSeat
	}
	now := s.now().UTC()
	cutoff := now.Add(-s.ttl)
	s.sweep(ctx, showID, cutoff)

	hold := model.SeatHold{
		ShowID:     showID,
		SeatNumber: seat,
		UserID:     userID,
		ReservedAt: now,
	}
	err = s.ledger.Claim(ctx, hold, cutoff, s.maxHolds)
	if err == nil {
		return &hold, nil
	}
	if errors.Is(err, repository.ErrClaimRejected) {
		return nil, s.diagnoseClaim(ctx, showID, userID, seat, cutoff)
	}
	return nil, err
}

// diagnoseClaim re-reads the seat after a rejected claim and maps the
// observed state to a specific conflict. Any failure during diagnosis
// degrades to the generic conflict.
func (s *ReservationService) diagnoseClaim(ctx context.Context, showID, userID uint64, seat uint32, cutoff time.Time) error {
	view, err := s.ledger.SeatView(ctx, showID, seat)
	if err != nil {
		return repository.ErrSeatUnavailable
	}
	if view.Booked {
		return repository.ErrSeatAlreadyBooked
	}
	if view.HeldBy != 0 {
		return repository.ErrSeatAlreadyHeld
	}
	count, err := s.ledger.HeldCount(ctx, showID, userID, cutoff)
	if err != nil {
		return repository.ErrSeatUnavailable
	}
	if count >= s.maxHolds {
		return repository.ErrHoldLimitReached
	}
	return repository.ErrSeatUnavailable
}

// Release removes the caller's hold on one seat. Releasing a seat that
// is not held by the caller returns ErrHoldNotFound; the operation never
// touches holds owned by other users, so a racing reserve simply resolves
// to whichever statement the store applies first.
func (s *ReservationService) Release(ctx context.Context, showID, userID uint64, seat uint32) error {
	if seat == 0 {
		return ErrInvalidSeat
	}
	removed, err := s.ledger.Release(ctx, showID, userID, seat)
	if err != nil {
		return err
	}
	if !removed {
		return repository.ErrHoldNotFound
	}
	return nil
}

// ReleaseAll removes every hold the caller owns on the show and returns
// how many were removed. It always succeeds, even with zero removals.
func (s *ReservationService) ReleaseAll(ctx context.Context, showID, userID uint64) (int64, error) {
	return s.ledger.ReleaseAll(ctx, showID, userID)
}

// Book promotes 1 to maxHolds of the caller's unexpired holds into a
// permanent booking. Input is validated before any mutation; the sweep
// runs next; then the booking store commits the promotion as one
// all-or-nothing transaction. Any abort leaves both the ledger and the
// booking store untouched.
func (s *ReservationService) Book(ctx context.Context, showID, userID uint64, seats []uint32) (*model.Booking, error) {
	if len(seats) == 0 {
		return nil, ErrNoSeats
	}
	if len(seats) > s.maxHolds {
		return nil, ErrTooManySeats
	}
	seen := make(map[uint32]struct{}, len(seats))
	for _, seat := range seats {
		if seat == 0 {
			return nil, ErrInvalidSeat
		}
		if _, dup := seen[seat]; dup {
			return nil, ErrDuplicateSeat
		}
		seen[seat] = struct{}{}
	}
	show, err := s.shows.GetByID(ctx, showID)
	if err != nil {
		return nil, err
	}
	for _, seat := range seats {
		if seat > show.SeatCount {
			return nil, ErrInvalidSeat
		}
	}

	now := s.now().UTC()
	cutoff := now.Add(-s.ttl)
	s.sweep(ctx, showID, cutoff)

	booking := &model.Booking{
		ID:        s.newID(),
		UserID:    userID,
		ShowID:    showID,
		Seats:     append([]uint32(nil), seats...),
		CreatedAt: now,
	}
	if err := s.bookings.Create(ctx, booking, cutoff); err != nil {
		return nil, err
	}
	return booking, nil
}
