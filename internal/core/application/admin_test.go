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

func TestAdminOnly(t *testing.T) {
	f := newFixture(t, 0, 10)
	ctx := context.Background()

	err := f.adminSvc.SeedPrize(ctx, "mallory", 50)
	require.ErrorIs(t, err, domain.ErrAdminOnly)

	_, err = f.adminSvc.InitRound(ctx, "")
	require.ErrorIs(t, err, domain.ErrAdminOnly)

	err = f.adminSvc.CloseProtocol(ctx, "mallory")
	require.ErrorIs(t, err, domain.ErrAdminOnly)
}

func TestInitRoundRequiresPreviousComplete(t *testing.T) {
	f := newFixture(t, 0, 10)
	ctx := context.Background()

	round, err := f.adminSvc.InitRound(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, uint64(1), round.ID)
	require.Equal(t, uint8(1), round.EpochInRound)

	_, err = f.adminSvc.InitRound(ctx, admin)
	require.ErrorIs(t, err, domain.ErrRoundNotComplete)
}

func TestAdvanceEpochIsBounded(t *testing.T) {
	f := newFixture(t, 0, 10)
	ctx := context.Background()

	_, err := f.adminSvc.InitRound(ctx, admin)
	require.NoError(t, err)

	require.NoError(t, f.adminSvc.AdvanceEpoch(ctx, admin))
	require.NoError(t, f.adminSvc.AdvanceEpoch(ctx, admin))

	err = f.adminSvc.AdvanceEpoch(ctx, admin)
	require.ErrorIs(t, err, domain.ErrInvalidEpoch)
}

func TestSelectWinnerWithExplicitSeed(t *testing.T) {
	f := newFixture(t, 0, 10)
	ctx := context.Background()

	_, err := f.adminSvc.InitRound(ctx, admin)
	require.NoError(t, err)

	_, err = f.adminSvc.SelectWinner(ctx, admin, 1)
	require.ErrorIs(t, err, domain.ErrNoTicketsSold)

	_, err = f.svc.Deposit(ctx, "alice", 2*ticketPrice)
	require.NoError(t, err)
	_, err = f.svc.Deposit(ctx, "bob", ticketPrice)
	require.NoError(t, err)

	res, err := f.adminSvc.SelectWinner(ctx, admin, 2)
	require.NoError(t, err)
	require.True(t, res.Completed)
	require.Equal(t, "bob", res.Winner)
	require.Equal(t, uint64(2), res.WinningTicket)

	_, err = f.adminSvc.SelectWinner(ctx, admin, 2)
	require.ErrorIs(t, err, domain.ErrRoundComplete)
}

func TestCreateClaimRecordFor(t *testing.T) {
	f := newFixture(t, 0, 10)
	ctx := context.Background()

	_, err := f.adminSvc.InitRound(ctx, admin)
	require.NoError(t, err)
	_, err = f.svc.Deposit(ctx, "alice", ticketPrice)
	require.NoError(t, err)

	_, err = f.adminSvc.CreateClaimRecordFor(ctx, admin, 1, 50, 100)
	require.ErrorIs(t, err, domain.ErrRoundNotComplete)

	_, err = f.adminSvc.SelectWinner(ctx, admin, 0)
	require.NoError(t, err)

	claim, err := f.adminSvc.CreateClaimRecordFor(ctx, admin, 1, 50, 100)
	require.NoError(t, err)
	require.Equal(t, "alice", claim.Winner)
	require.Equal(t, uint64(150), claim.Owed())

	registry, err := f.svc.GetRegistry(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(50), registry.TotalUnclaimedPrizes)
}

func TestCloseProtocolRefusedWhileOwing(t *testing.T) {
	f := newFixture(t, 0, 10)
	ctx := context.Background()

	_, err := f.adminSvc.InitRound(ctx, admin)
	require.NoError(t, err)
	require.NoError(t, f.adminSvc.SeedPrize(ctx, admin, 50))
	_, err = f.svc.Deposit(ctx, "alice", ticketPrice)
	require.NoError(t, err)

	_, err = f.adminSvc.SelectWinner(ctx, admin, 0)
	require.NoError(t, err)
	_, err = f.svc.CreateClaimRecord(ctx, 1, "alice")
	require.NoError(t, err)

	err = f.adminSvc.CloseProtocol(ctx, admin)
	require.ErrorIs(t, err, domain.ErrUnclaimedPrizesExist)

	_, err = f.svc.Crank(ctx, 0)
	require.NoError(t, err)
	_, err = f.svc.ClaimPrize(ctx, 1, "alice")
	require.NoError(t, err)

	require.NoError(t, f.adminSvc.CloseProtocol(ctx, admin))
}

func TestClosedProtocolRejectsNewActivity(t *testing.T) {
	f := newFixture(t, 0, 10)
	ctx := context.Background()

	_, err := f.adminSvc.InitRound(ctx, admin)
	require.NoError(t, err)
	_, err = f.svc.Deposit(ctx, "alice", ticketPrice)
	require.NoError(t, err)
	_, err = f.adminSvc.SelectWinner(ctx, admin, 0)
	require.NoError(t, err)

	require.NoError(t, f.adminSvc.CloseProtocol(ctx, admin))

	err = f.adminSvc.SeedPrize(ctx, admin, 50)
	require.ErrorIs(t, err, domain.ErrProtocolClosed)

	_, err = f.adminSvc.InitRound(ctx, admin)
	require.ErrorIs(t, err, domain.ErrProtocolClosed)

	_, err = f.svc.Deposit(ctx, "alice", ticketPrice)
	require.ErrorIs(t, err, domain.ErrProtocolClosed)
}

func TestHarvestBeforeCooldown(t *testing.T) {
	repo, err := db.NewService(db.ServiceConfig{
		DataStoreType:   "badger",
		DataStoreConfig: []interface{}{"", nil},
	})
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	// An hour-long cooldown never elapses within the test.
	yieldSvc := simulatedyield.NewService(1000, time.Hour)
	svc, err := application.NewService(
		ticketPrice, epochDuration, 10, admin, yieldIdentity,
		repo, &stubRandSource{}, yieldSvc,
	)
	require.NoError(t, err)
	adminSvc := application.NewAdminService(10, repo, yieldSvc)

	ctx := context.Background()
	_, err = adminSvc.InitRound(ctx, admin)
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, "alice", ticketPrice)
	require.NoError(t, err)

	require.NoError(t, adminSvc.Delegate(ctx, admin, 1))

	// Not deactivating yet: harvesting is a no-op.
	require.NoError(t, adminSvc.Harvest(ctx, admin, 1))

	require.NoError(t, adminSvc.Deactivate(ctx, admin, 1))

	err = adminSvc.Harvest(ctx, admin, 1)
	require.ErrorIs(t, err, ports.ErrStakeCooldown)
}
