package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-seat-booking/internal/model"
	"github.com/iliyamo/movie-seat-booking/internal/repository"
	"github.com/iliyamo/movie-seat-booking/internal/service"
)

// The fakes below mirror the store contract: every ledger operation is
// atomic under one mutex, exactly as each SQL statement is atomic in
// MySQL. The engine itself holds no locks, so these tests exercise the
// real concurrency behavior of the reserve path.

type seatKey struct {
	show uint64
	seat uint32
}

type memLedger struct {
	mu     sync.Mutex
	holds  map[seatKey]model.SeatHold
	booked map[seatKey]struct{}

	purgeErr error
	claimErr error
}

func newMemLedger() *memLedger {
	return &memLedger{
		holds:  make(map[seatKey]model.SeatHold),
		booked: make(map[seatKey]struct{}),
	}
}

func (l *memLedger) PurgeExpired(_ context.Context, showID uint64, cutoff time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.purgeErr != nil {
		return 0, l.purgeErr
	}
	var n int64
	for k, h := range l.holds {
		if k.show == showID && !h.ReservedAt.After(cutoff) {
			delete(l.holds, k)
			n++
		}
	}
	return n, nil
}

func (l *memLedger) Claim(_ context.Context, hold model.SeatHold, cutoff time.Time, maxHolds int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.claimErr != nil {
		return l.claimErr
	}
	key := seatKey{hold.ShowID, hold.SeatNumber}
	if _, ok := l.booked[key]; ok {
		return repository.ErrClaimRejected
	}
	if _, ok := l.holds[key]; ok {
		return repository.ErrClaimRejected
	}
	if l.countLocked(hold.ShowID, hold.UserID, cutoff) >= maxHolds {
		return repository.ErrClaimRejected
	}
	l.holds[key] = hold
	return nil
}

func (l *memLedger) Release(_ context.Context, showID, userID uint64, seat uint32) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := seatKey{showID, seat}
	h, ok := l.holds[key]
	if !ok || h.UserID != userID {
		return false, nil
	}
	delete(l.holds, key)
	return true, nil
}

func (l *memLedger) ReleaseAll(_ context.Context, showID, userID uint64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for k, h := range l.holds {
		if k.show == showID && h.UserID == userID {
			delete(l.holds, k)
			n++
		}
	}
	return n, nil
}

func (l *memLedger) SeatView(_ context.Context, showID uint64, seat uint32) (repository.SeatView, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := seatKey{showID, seat}
	var v repository.SeatView
	if _, ok := l.booked[key]; ok {
		v.Booked = true
	}
	if h, ok := l.holds[key]; ok {
		v.HeldBy = h.UserID
		v.HeldAt = h.ReservedAt
	}
	return v, nil
}

func (l *memLedger) HeldCount(_ context.Context, showID, userID uint64, cutoff time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.countLocked(showID, userID, cutoff), nil
}

func (l *memLedger) countLocked(showID, userID uint64, cutoff time.Time) int {
	n := 0
	for k, h := range l.holds {
		if k.show == showID && h.UserID == userID && h.ReservedAt.After(cutoff) {
			n++
		}
	}
	return n
}

func (l *memLedger) holdFor(showID uint64, seat uint32) (model.SeatHold, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.holds[seatKey{showID, seat}]
	return h, ok
}

func (l *memLedger) markBooked(showID uint64, seat uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.booked[seatKey{showID, seat}] = struct{}{}
}

type memShows struct {
	shows map[uint64]*model.Show
}

func (s *memShows) GetByID(_ context.Context, id uint64) (*model.Show, error) {
	show, ok := s.shows[id]
	if !ok {
		return nil, repository.ErrShowNotFound
	}
	return show, nil
}

// memBookings promotes holds inside the ledger mutex so the whole
// promotion is one atomic step, like the SQL transaction it stands for.
type memBookings struct {
	ledger   *memLedger
	bookings map[string]*model.Booking
}

func newMemBookings(l *memLedger) *memBookings {
	return &memBookings{ledger: l, bookings: make(map[string]*model.Booking)}
}

func (b *memBookings) Create(_ context.Context, booking *model.Booking, cutoff time.Time) error {
	b.ledger.mu.Lock()
	defer b.ledger.mu.Unlock()

	for k, h := range b.ledger.holds {
		if k.show == booking.ShowID && !h.ReservedAt.After(cutoff) {
			delete(b.ledger.holds, k)
		}
	}

	var missing []uint32
	for _, seat := range booking.Seats {
		h, ok := b.ledger.holds[seatKey{booking.ShowID, seat}]
		if !ok || h.UserID != booking.UserID {
			missing = append(missing, seat)
		}
	}
	if len(missing) > 0 {
		return &repository.MissingHoldsError{Seats: missing}
	}

	var alreadyBooked []uint32
	for _, seat := range booking.Seats {
		if _, ok := b.ledger.booked[seatKey{booking.ShowID, seat}]; ok {
			alreadyBooked = append(alreadyBooked, seat)
		}
	}
	if len(alreadyBooked) > 0 {
		return &repository.AlreadyBookedError{Seats: alreadyBooked}
	}

	for _, seat := range booking.Seats {
		key := seatKey{booking.ShowID, seat}
		delete(b.ledger.holds, key)
		b.ledger.booked[key] = struct{}{}
	}
	b.bookings[booking.ID] = booking
	return nil
}

type fixture struct {
	svc      *service.ReservationService
	ledger   *memLedger
	bookings *memBookings
	now      time.Time
	mu       sync.Mutex
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

const (
	testShowID    = uint64(42)
	testSeatCount = uint32(100)
)

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	f := &fixture{
		ledger: newMemLedger(),
		now:    time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC),
	}
	f.bookings = newMemBookings(f.ledger)
	shows := &memShows{shows: map[uint64]*model.Show{
		testShowID: {ID: testShowID, SeatCount: testSeatCount},
	}}
	nextID := 0
	base := []service.Option{
		service.WithClock(f.clock),
		service.WithIDAllocator(func() string {
			nextID++
			return fmt.Sprintf("booking-%d", nextID)
		}),
	}
	f.svc = service.NewReservationService(shows, f.ledger, f.bookings, append(base, opts...)...)
	return f
}

func TestReserveIssuesHold(t *testing.T) {
	f := newFixture(t)

	hold, err := f.svc.Reserve(context.Background(), testShowID, 7, 12)
	require.NoError(t, err)
	assert.Equal(t, uint32(12), hold.SeatNumber)
	assert.Equal(t, uint64(7), hold.UserID)
	assert.Equal(t, f.clock(), hold.ReservedAt)

	stored, ok := f.ledger.holdFor(testShowID, 12)
	require.True(t, ok)
	assert.Equal(t, uint64(7), stored.UserID)
}

func TestReserveConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const contenders = 16
	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Reserve(ctx, testShowID, uint64(i+1), 5)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		// Losers see either the specific hold conflict or, if they
		// raced the diagnostic read itself, the generic conflict.
		assert.True(t,
			errors.Is(err, repository.ErrSeatAlreadyHeld) || errors.Is(err, repository.ErrSeatUnavailable),
			"unexpected loser error: %v", err)
	}
	assert.Equal(t, 1, winners)
}

func TestReserveSeatHeldByOther(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Reserve(ctx, testShowID, 1, 5)
	require.NoError(t, err)

	_, err = f.svc.Reserve(ctx, testShowID, 2, 5)
	assert.ErrorIs(t, err, repository.ErrSeatAlreadyHeld)
}

func TestReserveBookedSeat(t *testing.T) {
	f := newFixture(t)
	f.ledger.markBooked(testShowID, 9)

	_, err := f.svc.Reserve(context.Background(), testShowID, 1, 9)
	assert.ErrorIs(t, err, repository.ErrSeatAlreadyBooked)
}

func TestReserveBookedWinsOverHeldInDiagnosis(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Force both states at once; the diagnosis must report the
	// stronger, permanent one.
	_, err := f.svc.Reserve(ctx, testShowID, 1, 9)
	require.NoError(t, err)
	f.ledger.markBooked(testShowID, 9)

	_, err = f.svc.Reserve(ctx, testShowID, 2, 9)
	assert.ErrorIs(t, err, repository.ErrSeatAlreadyBooked)
}

func TestReserveHoldCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for seat := uint32(1); seat <= 6; seat++ {
		_, err := f.svc.Reserve(ctx, testShowID, 1, seat)
		require.NoError(t, err, "seat %d", seat)
	}
	_, err := f.svc.Reserve(ctx, testShowID, 1, 7)
	assert.ErrorIs(t, err, repository.ErrHoldLimitReached)

	// The cap is per user: another user is unaffected.
	_, err = f.svc.Reserve(ctx, testShowID, 2, 7)
	assert.NoError(t, err)
}

func TestReserveExpiredHoldFreesSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Reserve(ctx, testShowID, 1, 5)
	require.NoError(t, err)

	// One second past the TTL the hold is dead and the seat claimable.
	f.advance(service.DefaultHoldTTL + time.Second)
	hold, err := f.svc.Reserve(ctx, testShowID, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), hold.UserID)
}

func TestReserveHoldAliveJustBeforeTTL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Reserve(ctx, testShowID, 1, 5)
	require.NoError(t, err)

	f.advance(service.DefaultHoldTTL - time.Second)
	_, err = f.svc.Reserve(ctx, testShowID, 2, 5)
	assert.ErrorIs(t, err, repository.ErrSeatAlreadyHeld)
}

func TestExpiredHoldsDoNotCountTowardCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for seat := uint32(1); seat <= 6; seat++ {
		_, err := f.svc.Reserve(ctx, testShowID, 1, seat)
		require.NoError(t, err)
	}

	f.advance(service.DefaultHoldTTL + time.Second)
	_, err := f.svc.Reserve(ctx, testShowID, 1, 7)
	assert.NoError(t, err)
}

func TestReserveValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Reserve(ctx, testShowID, 1, 0)
	assert.ErrorIs(t, err, service.ErrInvalidSeat)

	_, err = f.svc.Reserve(ctx, testShowID, 1, testSeatCount+1)
	assert.ErrorIs(t, err, service.ErrInvalidSeat)

	_, err = f.svc.Reserve(ctx, 999, 1, 1)
	assert.ErrorIs(t, err, repository.ErrShowNotFound)
}

func TestReserveSurvivesSweepFailure(t *testing.T) {
	f := newFixture(t)
	f.ledger.purgeErr = errors.New("lock wait timeout")

	// The sweep is best-effort; a failing purge must not abort the claim.
	_, err := f.svc.Reserve(context.Background(), testShowID, 1, 5)
	assert.NoError(t, err)
}

func TestReserveStoreFailurePassesThrough(t *testing.T) {
	f := newFixture(t)
	storeErr := errors.New("connection reset")
	f.ledger.claimErr = storeErr

	_, err := f.svc.Reserve(context.Background(), testShowID, 1, 5)
	assert.ErrorIs(t, err, storeErr)
}

func TestReleaseOwnHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Reserve(ctx, testShowID, 1, 5)
	require.NoError(t, err)

	require.NoError(t, f.svc.Release(ctx, testShowID, 1, 5))

	// Once released the seat is claimable by anyone.
	_, err = f.svc.Reserve(ctx, testShowID, 2, 5)
	assert.NoError(t, err)
}

func TestReleaseMissingOrForeignHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.Release(ctx, testShowID, 1, 5)
	assert.ErrorIs(t, err, repository.ErrHoldNotFound)

	_, err = f.svc.Reserve(ctx, testShowID, 1, 5)
	require.NoError(t, err)

	// A foreign hold is indistinguishable from a missing one and must
	// never be removed.
	err = f.svc.Release(ctx, testShowID, 2, 5)
	assert.ErrorIs(t, err, repository.ErrHoldNotFound)
	_, held := f.ledger.holdFor(testShowID, 5)
	assert.True(t, held)
}

func TestReleaseAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for seat := uint32(1); seat <= 3; seat++ {
		_, err := f.svc.Reserve(ctx, testShowID, 1, seat)
		require.NoError(t, err)
	}
	_, err := f.svc.Reserve(ctx, testShowID, 2, 4)
	require.NoError(t, err)

	released, err := f.svc.ReleaseAll(ctx, testShowID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), released)

	// Idempotent: a second pass removes nothing and still succeeds.
	released, err = f.svc.ReleaseAll(ctx, testShowID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), released)

	// User 2's hold is untouched.
	_, held := f.ledger.holdFor(testShowID, 4)
	assert.True(t, held)
}

func TestBookPromotesHolds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seats := []uint32{3, 1, 2}
	for _, seat := range seats {
		_, err := f.svc.Reserve(ctx, testShowID, 1, seat)
		require.NoError(t, err)
	}

	booking, err := f.svc.Book(ctx, testShowID, 1, seats)
	require.NoError(t, err)
	assert.Equal(t, "booking-1", booking.ID)
	assert.Equal(t, seats, booking.Seats)
	assert.Equal(t, f.clock(), booking.CreatedAt)

	// Holds are consumed and the seats are now permanently booked.
	for _, seat := range seats {
		_, held := f.ledger.holdFor(testShowID, seat)
		assert.False(t, held, "seat %d still held", seat)
		_, err := f.svc.Reserve(ctx, testShowID, 2, seat)
		assert.ErrorIs(t, err, repository.ErrSeatAlreadyBooked, "seat %d", seat)
	}
	assert.Contains(t, f.bookings.bookings, "booking-1")
}

func TestBookAllOrNothingOnMissingHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Reserve(ctx, testShowID, 1, 1)
	require.NoError(t, err)
	_, err = f.svc.Reserve(ctx, testShowID, 1, 2)
	require.NoError(t, err)

	_, err = f.svc.Book(ctx, testShowID, 1, []uint32{1, 2, 3})
	var missing *repository.MissingHoldsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []uint32{3}, missing.Seats)

	// Nothing moved: the two valid holds survive, nothing got booked.
	_, held := f.ledger.holdFor(testShowID, 1)
	assert.True(t, held)
	_, held = f.ledger.holdFor(testShowID, 2)
	assert.True(t, held)
	assert.Empty(t, f.bookings.bookings)
}

func TestBookRejectsExpiredHolds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Reserve(ctx, testShowID, 1, 1)
	require.NoError(t, err)

	f.advance(service.DefaultHoldTTL + time.Second)
	_, err = f.svc.Book(ctx, testShowID, 1, []uint32{1})
	var missing *repository.MissingHoldsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []uint32{1}, missing.Seats)
}

func TestBookForeignHoldRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Reserve(ctx, testShowID, 2, 1)
	require.NoError(t, err)

	_, err = f.svc.Book(ctx, testShowID, 1, []uint32{1})
	var missing *repository.MissingHoldsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []uint32{1}, missing.Seats)

	// The other user's hold is untouched by the failed booking.
	h, held := f.ledger.holdFor(testShowID, 1)
	require.True(t, held)
	assert.Equal(t, uint64(2), h.UserID)
}

func TestBookValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		seats []uint32
		want  error
	}{
		{"empty", nil, service.ErrNoSeats},
		{"too many", []uint32{1, 2, 3, 4, 5, 6, 7}, service.ErrTooManySeats},
		{"duplicate", []uint32{1, 2, 1}, service.ErrDuplicateSeat},
		{"zero seat", []uint32{1, 0}, service.ErrInvalidSeat},
		{"out of range", []uint32{1, testSeatCount + 1}, service.ErrInvalidSeat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Book(ctx, testShowID, 1, tc.seats)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, f.bookings.bookings)
}

func TestBookUnknownShow(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), 999, 1, []uint32{1})
	assert.ErrorIs(t, err, repository.ErrShowNotFound)
}

func TestOptionsOverrideDefaults(t *testing.T) {
	f := newFixture(t, service.WithHoldTTL(30*time.Second), service.WithMaxHolds(2))
	ctx := context.Background()

	assert.Equal(t, 30*time.Second, f.svc.HoldTTL())

	_, err := f.svc.Reserve(ctx, testShowID, 1, 1)
	require.NoError(t, err)
	_, err = f.svc.Reserve(ctx, testShowID, 1, 2)
	require.NoError(t, err)
	_, err = f.svc.Reserve(ctx, testShowID, 1, 3)
	assert.ErrorIs(t, err, repository.ErrHoldLimitReached)

	// The shorter TTL applies: 31 seconds later the first hold is gone.
	f.advance(31 * time.Second)
	_, err = f.svc.Reserve(ctx, testShowID, 2, 1)
	assert.NoError(t, err)
}

func TestHoldReleaseRebookCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// User 1 holds two seats, changes their mind about one, and books
	// the other; user 2 then picks up the freed seat.
	_, err := f.svc.Reserve(ctx, testShowID, 1, 10)
	require.NoError(t, err)
	_, err = f.svc.Reserve(ctx, testShowID, 1, 11)
	require.NoError(t, err)

	require.NoError(t, f.svc.Release(ctx, testShowID, 1, 11))

	booking, err := f.svc.Book(ctx, testShowID, 1, []uint32{10})
	require.NoError(t, err)
	assert.Equal(t, []uint32{10}, booking.Seats)

	hold, err := f.svc.Reserve(ctx, testShowID, 2, 11)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), hold.UserID)
}
