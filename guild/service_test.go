package guild

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/sorahane/guildserver/model"
	"github.com/sorahane/guildserver/notify"
	"github.com/sorahane/guildserver/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, *notify.Recorder) {
	rec := &notify.Recorder{}
	svc := NewService(testutil.SetupTestStore(t), testutil.GuildTestConfig(), nil, rec, zap.NewNop())
	return svc, rec
}

func mustCreate(t *testing.T, svc *Service, name, tag string, ownerID int64) *model.Guild {
	t.Helper()
	g, err := svc.CreateGuild(context.Background(), name, tag, ownerID, "Owner")
	require.NoError(t, err)
	return g
}

func TestCreateGuild_Success(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	g, err := svc.CreateGuild(ctx, "Knights", "KNI", 1, "Alice")
	require.NoError(t, err)
	assert.Equal(t, 1, g.Level)
	assert.Equal(t, int64(1), g.OwnerID)

	member, err := svc.GetGuildMember(ctx, g.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, member.Role)

	bank, err := svc.GetBank(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bank.Balance)
	assert.Equal(t, int64(1000), bank.Capacity)
}

func TestCreateGuild_DuplicateName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustCreate(t, svc, "Knights", "KNI", 1)
	_, err := svc.CreateGuild(ctx, "Knights", "XYZ", 2, "Bob")
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestCreateGuild_DuplicateTag(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustCreate(t, svc, "Knights", "KNI", 1)
	_, err := svc.CreateGuild(ctx, "Paladins", "KNI", 2, "Bob")
	assert.ErrorIs(t, err, ErrDuplicateTag)
}

func TestCreateGuild_FounderAlreadyInGuild(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustCreate(t, svc, "Knights", "KNI", 1)
	_, err := svc.CreateGuild(ctx, "Paladins", "PAL", 1, "Alice")
	assert.ErrorIs(t, err, ErrAlreadyInGuild)
}

func TestCreateGuild_InvalidNameAndTag(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateGuild(ctx, "", "KNI", 1, "Alice")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = svc.CreateGuild(ctx, "Knights", "TOOLONGTAG", 1, "Alice")
	assert.ErrorIs(t, err, ErrInvalidTag)
}

func TestAddExperience_SingleLevelUp(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()
	g := mustCreate(t, svc, "Knights", "KNI", 1)

	// Threshold for level 1 is 100.
	levels, err := svc.AddExperience(ctx, g.ID, 150)
	require.NoError(t, err)
	assert.Equal(t, 1, levels)

	got, err := svc.GetGuild(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Level)
	assert.Equal(t, int64(50), got.Exp)

	ups := rec.Of("level_up")
	require.Len(t, ups, 1)
	assert.Equal(t, 2, ups[0].(notify.LevelUp).NewLevel)
}

func TestAddExperience_MultiLevelUp(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()
	g := mustCreate(t, svc, "Knights", "KNI", 1)

	// Thresholds: 100 (1→2), 200 (2→3). 350 crosses both.
	levels, err := svc.AddExperience(ctx, g.ID, 350)
	require.NoError(t, err)
	assert.Equal(t, 2, levels)

	got, err := svc.GetGuild(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Level)
	assert.Equal(t, int64(50), got.Exp)
	assert.Len(t, rec.Of("level_up"), 2)
}

func TestAddExperience_GrowsBankCapacity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	g := mustCreate(t, svc, "Knights", "KNI", 1)

	_, err := svc.AddExperience(ctx, g.ID, 100)
	require.NoError(t, err)

	bank, err := svc.GetBank(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), bank.Capacity)
}

func TestAddExperience_InvalidAmount(t *testing.T) {
	svc, _ := newTestService(t)
	g := mustCreate(t, svc, "Knights", "KNI", 1)

	_, err := svc.AddExperience(context.Background(), g.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.AddExperience(context.Background(), g.ID, -5)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSetRole_Promote(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	g := mustCreate(t, svc, "Knights", "KNI", 1)
	require.NoError(t, svc.AddMember(ctx, g.ID, 2, "Bob"))

	require.NoError(t, svc.SetRole(ctx, g.ID, 2, model.RoleAdmin))

	member, err := svc.GetGuildMember(ctx, g.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, member.Role)
}

func TestSetRole_OwnershipTransfer(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	g := mustCreate(t, svc, "Knights", "KNI", 1)
	require.NoError(t, svc.AddMember(ctx, g.ID, 2, "Bob"))

	require.NoError(t, svc.SetRole(ctx, g.ID, 2, model.RoleOwner))

	newOwner, err := svc.GetGuildMember(ctx, g.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, newOwner.Role)

	oldOwner, err := svc.GetGuildMember(ctx, g.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, oldOwner.Role)

	got, err := svc.GetGuild(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.OwnerID)
}

func TestSetRole_DemoteOwnerFails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	g := mustCreate(t, svc, "Knights", "KNI", 1)

	err := svc.SetRole(ctx, g.ID, 1, model.RoleMember)
	assert.ErrorIs(t, err, ErrLastOwner)
}

func TestRemoveMember(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	g := mustCreate(t, svc, "Knights", "KNI", 1)
	require.NoError(t, svc.AddMember(ctx, g.ID, 2, "Bob"))

	require.NoError(t, svc.RemoveMember(ctx, g.ID, 2))
	_, err := svc.GetGuildMember(ctx, g.ID, 2)
	assert.ErrorIs(t, err, ErrNotMember)

	// The owner cannot be kicked.
	err = svc.RemoveMember(ctx, g.ID, 1)
	assert.ErrorIs(t, err, ErrLastOwner)
}

func TestLeave_MemberLeaves(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	g := mustCreate(t, svc, "Knights", "KNI", 1)
	require.NoError(t, svc.AddMember(ctx, g.ID, 2, "Bob"))

	require.NoError(t, svc.Leave(ctx, 2))
	_, err := svc.GetPlayerGuild(ctx, 2)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestLeave_OwnerWithMembersFails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	g := mustCreate(t, svc, "Knights", "KNI", 1)
	require.NoError(t, svc.AddMember(ctx, g.ID, 2, "Bob"))

	err := svc.Leave(ctx, 1)
	assert.ErrorIs(t, err, ErrLastOwner)
}

func TestLeave_SoleOwnerDisbands(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()
	g := mustCreate(t, svc, "Knights", "KNI", 1)

	require.NoError(t, svc.Leave(ctx, 1))
	_, err := svc.GetGuild(ctx, g.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, rec.Of("guild_disbanded"), 1)
}

func TestBank_DepositWithdraw(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	g := mustCreate(t, svc, "Knights", "KNI", 1)

	balance, err := svc.Deposit(ctx, g.ID, 600)
	require.NoError(t, err)
	assert.Equal(t, int64(600), balance)

	balance, err = svc.Withdraw(ctx, g.ID, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(400), balance)
}

func TestBank_CapacityAndOverdraft(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	g := mustCreate(t, svc, "Knights", "KNI", 1)

	// Capacity at level 1 is 1000.
	_, err := svc.Deposit(ctx, g.ID, 1001)
	assert.ErrorIs(t, err, ErrBankFull)

	_, err = svc.Withdraw(ctx, g.ID, 1)
	assert.ErrorIs(t, err, ErrInsufficientGold)
}

func TestJoinRequest_AcceptFlow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	g := mustCreate(t, svc, "Knights", "KNI", 1)

	req, err := svc.SubmitJoinRequest(ctx, 2, "Bob", g.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, req.Status)

	require.NoError(t, svc.AcceptJoinRequest(ctx, req.ID))

	member, err := svc.GetGuildMember(ctx, g.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, member.Role)

	// A resolved request cannot be resolved again.
	err = svc.AcceptJoinRequest(ctx, req.ID)
	assert.ErrorIs(t, err, ErrRequestResolved)
}

func TestJoinRequest_Reject(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	g := mustCreate(t, svc, "Knights", "KNI", 1)

	req, err := svc.SubmitJoinRequest(ctx, 2, "Bob", g.ID)
	require.NoError(t, err)
	require.NoError(t, svc.RejectJoinRequest(ctx, req.ID))

	_, err = svc.GetGuildMember(ctx, g.ID, 2)
	assert.ErrorIs(t, err, ErrNotMember)

	got, err := svc.GetJoinRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestRejected, got.Status)
}

func TestJoinRequest_AcceptWhenAlreadyInGuild(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	g1 := mustCreate(t, svc, "Knights", "KNI", 1)
	g2 := mustCreate(t, svc, "Paladins", "PAL", 2)

	req, err := svc.SubmitJoinRequest(ctx, 3, "Carol", g1.ID)
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(ctx, g2.ID, 3, "Carol"))

	err = svc.AcceptJoinRequest(ctx, req.ID)
	assert.ErrorIs(t, err, ErrAlreadyInGuild)

	// The failed acceptance leaves the request pending.
	got, err := svc.GetJoinRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, got.Status)
}

func TestJoinRequest_DuplicatePendingAllowed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	g := mustCreate(t, svc, "Knights", "KNI", 1)

	_, err := svc.SubmitJoinRequest(ctx, 2, "Bob", g.ID)
	require.NoError(t, err)
	_, err = svc.SubmitJoinRequest(ctx, 2, "Bob", g.ID)
	require.NoError(t, err)

	reqs, err := svc.ListJoinRequests(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, reqs, 2)
}

func TestDeleteGuild_CascadesMembership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	g := mustCreate(t, svc, "Knights", "KNI", 1)
	require.NoError(t, svc.AddMember(ctx, g.ID, 2, "Bob"))

	require.NoError(t, svc.DeleteGuild(ctx, g.ID))

	_, err := svc.GetGuild(ctx, g.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GetPlayerGuild(ctx, 2)
	assert.ErrorIs(t, err, ErrNotMember)
	_, err = svc.GetBank(ctx, g.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPublicGuilds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	g1 := mustCreate(t, svc, "Knights", "KNI", 1)
	g2 := mustCreate(t, svc, "Paladins", "PAL", 2)

	require.NoError(t, svc.SetPublic(ctx, g1.ID, true))
	require.NoError(t, svc.SetPublic(ctx, g2.ID, false))

	guilds, err := svc.ListPublicGuilds(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, guilds, 1)
	assert.Equal(t, g1.ID, guilds[0].ID)
}

func TestGetGuildByNameAndTag(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	g := mustCreate(t, svc, "Knights", "KNI", 1)

	byName, err := svc.GetGuildByName(ctx, "Knights")
	require.NoError(t, err)
	assert.Equal(t, g.ID, byName.ID)

	byTag, err := svc.GetGuildByTag(ctx, "KNI")
	require.NoError(t, err)
	assert.Equal(t, g.ID, byTag.ID)

	_, err = svc.GetGuildByName(ctx, "Nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddExperience_ConcurrentNoLostUpdates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	g := mustCreate(t, svc, "Knights", "KNI", 1)

	// 10 x 30 exp crosses level 1 (100) and level 2 (200) exactly.
	var wg sync.WaitGroup
	gained := make(chan int, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			levels, err := svc.AddExperience(ctx, g.ID, 30)
			assert.NoError(t, err)
			gained <- levels
		}()
	}
	wg.Wait()
	close(gained)

	total := 0
	for n := range gained {
		total += n
	}
	assert.Equal(t, 2, total)

	got, err := svc.GetGuild(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Level)
	assert.Equal(t, int64(0), got.Exp)
}

func TestCreateGuild_ConcurrentFounderJoinsOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.CreateGuild(ctx,
				fmt.Sprintf("Guild%d", n), fmt.Sprintf("G%d", n), 1, "Alice")
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	gdb, err := svc.store.DB(ctx)
	require.NoError(t, err)
	var count int64
	require.NoError(t, gdb.Model(&model.GuildMember{}).
		Where("player_id = ?", int64(1)).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
