package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/rafa-protocol/rafad/internal/core/application"
	"github.com/rafa-protocol/rafad/internal/core/domain"
	"github.com/rafa-protocol/rafad/internal/core/ports"
	"github.com/rafa-protocol/rafad/internal/infrastructure/db"
	simulatedyield "github.com/rafa-protocol/rafad/internal/infrastructure/yield/simulated"
	"github.com/stretchr/testify/require"
)

const (
	ticketPrice   = uint64(100)
	epochDuration = 120 * time.Second
	admin         = "admin"
	yieldIdentity = "yield-source"
)

type stubRandSource struct {
	seed uint64
}

func (s *stubRandSource) GetSeed(_ context.Context, _ []byte) (uint64, error) {
	return s.seed, nil
}

type fixture struct {
	svc      application.Service
	adminSvc application.AdminService
	repo     ports.RepoManager
}

func newFixture(t *testing.T, seed uint64, batchSize int) *fixture {
	t.Helper()

	repo, err := db.NewService(db.ServiceConfig{
		DataStoreType:   "badger",
		DataStoreConfig: []interface{}{"", nil},
	})
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	yieldSvc := simulatedyield.NewService(1000, 0)
	svc, err := application.NewService(
		ticketPrice, epochDuration, batchSize, admin, yieldIdentity,
		repo, &stubRandSource{seed}, yieldSvc,
	)
	require.NoError(t, err)

	adminSvc := application.NewAdminService(batchSize, repo, yieldSvc)
	return &fixture{svc: svc, adminSvc: adminSvc, repo: repo}
}

// rewind shifts the current round's start back in time so that the next crank
// observes elapsed epochs.
func (f *fixture) rewind(t *testing.T, delta time.Duration) {
	t.Helper()
	ctx := context.Background()

	registry, err := f.repo.Registry().Get(ctx)
	require.NoError(t, err)
	round, err := f.repo.Rounds().GetRoundWithID(ctx, registry.CurrentRound)
	require.NoError(t, err)

	round.StartTimestamp -= int64(delta.Seconds())
	require.NoError(t, f.repo.Rounds().AddOrUpdateRound(ctx, *round))
}

func TestServiceInitializesRegistry(t *testing.T) {
	f := newFixture(t, 0, 10)
	ctx := context.Background()

	registry, err := f.svc.GetRegistry(ctx)
	require.NoError(t, err)
	require.Equal(t, admin, registry.Admin)
	require.Zero(t, registry.CurrentRound)

	_, err = f.svc.GetCurrentRound(ctx)
	require.ErrorIs(t, err, domain.ErrRoundNotFound)
}

func TestDepositValidation(t *testing.T) {
	f := newFixture(t, 0, 10)
	ctx := context.Background()

	_, err := f.svc.Deposit(ctx, "alice", 0)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Deposit(ctx, "alice", ticketPrice+1)
	require.ErrorIs(t, err, domain.ErrInvalidTicketAmount)

	_, err = f.svc.Deposit(ctx, "alice", ticketPrice)
	require.ErrorIs(t, err, domain.ErrRoundNotFound)
}

func TestRoundLifecycle(t *testing.T) {
	// Seed 7 over 8 tickets draws ticket 7, owned by bob.
	f := newFixture(t, 7, 10)
	ctx := context.Background()

	_, err := f.adminSvc.InitRound(ctx, admin)
	require.NoError(t, err)
	require.NoError(t, f.adminSvc.SeedPrize(ctx, admin, 50))

	res, err := f.svc.Deposit(ctx, "alice", 5*ticketPrice)
	require.NoError(t, err)
	require.Equal(t, uint64(0), res.TicketStart)
	require.Equal(t, uint64(4), res.TicketEnd)

	res, err = f.svc.Deposit(ctx, "bob", 3*ticketPrice)
	require.NoError(t, err)
	require.Equal(t, uint64(5), res.TicketStart)
	require.Equal(t, uint64(7), res.TicketEnd)

	// Nothing elapsed: cranking changes nothing.
	crank, err := f.svc.Crank(ctx, 0)
	require.NoError(t, err)
	require.False(t, crank.Completed)
	require.Equal(t, uint8(1), crank.EpochInRound)

	// Two epochs elapse: deposits close, stake is delegated.
	f.rewind(t, 2*epochDuration)
	crank, err = f.svc.Crank(ctx, 0)
	require.NoError(t, err)
	require.False(t, crank.Completed)
	require.Equal(t, uint8(3), crank.EpochInRound)

	_, err = f.svc.Deposit(ctx, "carol", ticketPrice)
	require.ErrorIs(t, err, domain.ErrDepositsClosedEpoch3)

	registry, err := f.svc.GetRegistry(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(50), registry.AvailableLiquidity)

	// The full round elapses: the draw runs.
	f.rewind(t, epochDuration)
	crank, err = f.svc.Crank(ctx, 0)
	require.NoError(t, err)
	require.True(t, crank.Completed)
	require.Equal(t, "bob", crank.Winner)
	require.Equal(t, uint64(7), crank.WinningTicket)

	round, err := f.svc.GetCurrentRound(ctx)
	require.NoError(t, err)
	require.True(t, round.IsComplete)
	require.Equal(t, uint64(50), round.TotalPrize)

	// A repeated crank after completion is a no-op apart from harvesting.
	crank2, err := f.svc.Crank(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, crank.Winner, crank2.Winner)

	// Settlement: only the winner can mint the claim record.
	_, err = f.svc.CreateClaimRecord(ctx, round.ID, "alice")
	require.ErrorIs(t, err, domain.ErrNotWinner)

	claim, err := f.svc.CreateClaimRecord(ctx, round.ID, "bob")
	require.NoError(t, err)
	require.Equal(t, uint64(50), claim.PrizeAmount)
	require.Equal(t, uint64(300), claim.StakeAmount)

	_, err = f.svc.CreateClaimRecord(ctx, round.ID, "bob")
	require.ErrorIs(t, err, domain.ErrClaimRecordExists)

	// The harvest crank above returned principal 800 plus 10% yield.
	registry, err = f.svc.GetRegistry(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(930), registry.AvailableLiquidity)
	require.Equal(t, uint64(50), registry.TotalUnclaimedPrizes)

	payout, err := f.svc.ClaimPrize(ctx, round.ID, "bob")
	require.NoError(t, err)
	require.Equal(t, uint64(350), payout.Amount)
	require.Zero(t, payout.Deferred)

	_, err = f.svc.ClaimPrize(ctx, round.ID, "bob")
	require.ErrorIs(t, err, domain.ErrAlreadyClaimed)

	// The winner settles through the claim, never the withdrawal path.
	_, err = f.svc.ProcessWithdrawal(ctx, round.ID, "bob")
	require.ErrorIs(t, err, domain.ErrWinnerMustClaim)

	payout, err = f.svc.ProcessWithdrawal(ctx, round.ID, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(500), payout.Amount)

	_, err = f.svc.ProcessWithdrawal(ctx, round.ID, "alice")
	require.ErrorIs(t, err, domain.ErrNothingToWithdraw)

	registry, err = f.svc.GetRegistry(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(80), registry.AvailableLiquidity)
	require.Zero(t, registry.TotalUnclaimedPrizes)

	// The protocol can open the next round and eventually close.
	round2, err := f.adminSvc.InitRound(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, uint64(2), round2.ID)
}

func TestPartialClaimDefersRemainder(t *testing.T) {
	// Single depositor wins; the prize pool only holds the seeded 50 until
	// the harvest lands, so the first claim is partial.
	f := newFixture(t, 0, 10)
	ctx := context.Background()

	_, err := f.adminSvc.InitRound(ctx, admin)
	require.NoError(t, err)
	require.NoError(t, f.adminSvc.SeedPrize(ctx, admin, 50))

	_, err = f.svc.Deposit(ctx, "alice", 2*ticketPrice)
	require.NoError(t, err)

	f.rewind(t, 3*epochDuration)
	crank, err := f.svc.Crank(ctx, 0)
	require.NoError(t, err)
	require.True(t, crank.Completed)
	require.Equal(t, "alice", crank.Winner)

	claim, err := f.svc.CreateClaimRecord(ctx, crank.RoundID, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(250), claim.Owed())

	payout, err := f.svc.ClaimPrize(ctx, crank.RoundID, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(50), payout.Amount)
	require.Equal(t, uint64(200), payout.Deferred)

	got, err := f.repo.Claims().Get(ctx, crank.RoundID, "alice")
	require.NoError(t, err)
	require.False(t, got.Claimed)

	// Harvest replenishes the pool; the rest of the entitlement pays out.
	_, err = f.svc.Crank(ctx, 0)
	require.NoError(t, err)

	payout, err = f.svc.ClaimPrize(ctx, crank.RoundID, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(200), payout.Amount)
	require.Zero(t, payout.Deferred)

	got, err = f.repo.Claims().Get(ctx, crank.RoundID, "alice")
	require.NoError(t, err)
	require.True(t, got.Claimed)
}

func TestOptedOutCannotWin(t *testing.T) {
	// Seed 0 draws ticket 0, alice's. She opted out, so the draw must land
	// on bob regardless.
	f := newFixture(t, 0, 10)
	ctx := context.Background()

	_, err := f.adminSvc.InitRound(ctx, admin)
	require.NoError(t, err)

	_, err = f.svc.Deposit(ctx, "alice", ticketPrice)
	require.NoError(t, err)
	_, err = f.svc.Deposit(ctx, "bob", ticketPrice)
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestWithdrawal(ctx, "alice", ticketPrice))

	alice, err := f.svc.GetParticipant(ctx, "alice")
	require.NoError(t, err)
	require.True(t, alice.OptedOut)
	require.Zero(t, alice.Balance)
	require.Equal(t, uint64(100), alice.PendingWithdrawalAmount)

	f.rewind(t, 3*epochDuration)
	crank, err := f.svc.Crank(ctx, 0)
	require.NoError(t, err)
	require.True(t, crank.Completed)
	require.Equal(t, "bob", crank.Winner)

	// Harvest first: the refund is paid out of the pool's liquidity.
	_, err = f.svc.Crank(ctx, 0)
	require.NoError(t, err)

	payout, err := f.svc.ProcessWithdrawal(ctx, crank.RoundID, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(100), payout.Amount)
}

func TestCrankPagesThroughParticipants(t *testing.T) {
	// Batch size 1 forces the draw to walk the ledger page by page until it
	// reaches carol, the owner of ticket 2.
	f := newFixture(t, 2, 1)
	ctx := context.Background()

	_, err := f.adminSvc.InitRound(ctx, admin)
	require.NoError(t, err)

	for _, identity := range []string{"alice", "bob", "carol"} {
		_, err = f.svc.Deposit(ctx, identity, ticketPrice)
		require.NoError(t, err)
	}

	f.rewind(t, 3*epochDuration)

	crank, err := f.svc.Crank(ctx, 0)
	require.NoError(t, err)
	require.False(t, crank.Completed)
	require.True(t, crank.HasMore)
	require.Equal(t, 1, crank.NextCursor)

	crank, err = f.svc.Crank(ctx, crank.NextCursor)
	require.NoError(t, err)
	require.False(t, crank.Completed)
	require.True(t, crank.HasMore)
	require.Equal(t, 2, crank.NextCursor)

	crank, err = f.svc.Crank(ctx, crank.NextCursor)
	require.NoError(t, err)
	require.True(t, crank.Completed)
	require.Equal(t, "carol", crank.Winner)
	require.Equal(t, uint64(2), crank.WinningTicket)
}

func TestCrankResolvesDeadTicketsAcrossPages(t *testing.T) {
	// Seed 0 draws ticket 0, owned by opted-out alice, while batch size 1
	// keeps bob out of the first page. Following the cursor must still
	// terminate the draw on bob, never loop on the dead ticket.
	f := newFixture(t, 0, 1)
	ctx := context.Background()

	_, err := f.adminSvc.InitRound(ctx, admin)
	require.NoError(t, err)

	_, err = f.svc.Deposit(ctx, "alice", ticketPrice)
	require.NoError(t, err)
	_, err = f.svc.Deposit(ctx, "bob", ticketPrice)
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestWithdrawal(ctx, "alice", ticketPrice))

	f.rewind(t, 3*epochDuration)

	var crank *application.CrankResult
	cursor := 0
	for i := 0; ; i++ {
		require.Less(t, i, 4, "draw did not terminate")
		crank, err = f.svc.Crank(ctx, cursor)
		require.NoError(t, err)
		if crank.Completed {
			break
		}
		require.True(t, crank.HasMore)
		cursor = crank.NextCursor
	}

	require.Equal(t, "bob", crank.Winner)
	require.Equal(t, uint64(1), crank.WinningTicket)
}

func TestRoundWithoutTicketsStaysOpen(t *testing.T) {
	f := newFixture(t, 0, 10)
	ctx := context.Background()

	_, err := f.adminSvc.InitRound(ctx, admin)
	require.NoError(t, err)

	f.rewind(t, 5*epochDuration)
	crank, err := f.svc.Crank(ctx, 0)
	require.NoError(t, err)
	require.False(t, crank.Completed)
	require.Equal(t, uint8(3), crank.EpochInRound)
}

func TestSnapshotBatchIsIdempotent(t *testing.T) {
	f := newFixture(t, 0, 10)
	ctx := context.Background()

	_, err := f.adminSvc.InitRound(ctx, admin)
	require.NoError(t, err)

	_, err = f.svc.Deposit(ctx, "alice", 2*ticketPrice)
	require.NoError(t, err)
	_, err = f.svc.Deposit(ctx, "bob", ticketPrice)
	require.NoError(t, err)

	res, err := f.svc.SnapshotBatch(ctx, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint8(1), res.Epoch)
	require.Equal(t, 2, res.Processed)

	res, err = f.svc.SnapshotBatch(ctx, 0, 0)
	require.NoError(t, err)
	require.Zero(t, res.Processed)

	require.NoError(t, f.adminSvc.AdvanceEpoch(ctx, admin))

	res, err = f.svc.SnapshotBatch(ctx, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint8(2), res.Epoch)
	require.Equal(t, 2, res.Processed)

	alice, err := f.svc.GetParticipant(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(200), alice.SnapshotBalances[0])
	require.Equal(t, uint64(200), alice.SnapshotBalances[1])
}

func TestParticipantReusedAcrossRounds(t *testing.T) {
	f := newFixture(t, 0, 10)
	ctx := context.Background()

	_, err := f.adminSvc.InitRound(ctx, admin)
	require.NoError(t, err)

	_, err = f.svc.Deposit(ctx, "alice", 3*ticketPrice)
	require.NoError(t, err)

	f.rewind(t, 3*epochDuration)
	crank, err := f.svc.Crank(ctx, 0)
	require.NoError(t, err)
	require.True(t, crank.Completed)

	_, err = f.adminSvc.InitRound(ctx, admin)
	require.NoError(t, err)

	res, err := f.svc.Deposit(ctx, "alice", ticketPrice)
	require.NoError(t, err)
	require.Equal(t, uint64(2), res.RoundID)
	require.Equal(t, uint64(0), res.TicketStart)

	alice, err := f.svc.GetParticipant(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(2), alice.RoundJoined)
	require.Equal(t, uint64(100), alice.Balance)
}
