package service

import (
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMessageService(t *testing.T) (*MessageService, *recordingHub, *model.User, *model.User) {
	t.Helper()
	db := setupTestDB(t)
	users := repository.NewUserRepository(db)
	admin := &model.User{Name: "老师", Email: "admin@example.com", Password: "x", Role: model.Admin, Approved: true}
	student := &model.User{Name: "小明", Email: "s@example.com", Password: "x", Role: model.Student, Approved: true}
	require.NoError(t, users.Create(admin))
	require.NoError(t, users.Create(student))

	hub := &recordingHub{}
	return NewMessageService(repository.NewMessageRepository(db), users, hub), hub, admin, student
}

func claimsFor(u *model.User) *util.Claims {
	return &util.Claims{UserID: u.ID, Role: u.Role, Email: u.Email}
}

func TestMessageBoard(t *testing.T) {
	svc, hub, admin, student := newMessageService(t)

	_, err := svc.Create(admin.ID, "   ")
	assert.ErrorIs(t, err, util.ErrEmptyContent)

	msg, err := svc.Create(admin.ID, " 欢迎大家 ")
	require.NoError(t, err)
	assert.Equal(t, "欢迎大家", msg.Content)
	assert.Equal(t, "老师", msg.SenderName)
	assert.Equal(t, model.Admin, msg.Role)
	assert.NotEmpty(t, msg.ID)

	reply, err := svc.Reply(student.ID, msg.ID, "收到")
	require.NoError(t, err)
	assert.Equal(t, msg.ID, reply.MessageID)

	_, err = svc.Reply(student.ID, "missing", "收到")
	assert.ErrorIs(t, err, util.ErrMessageNotFound)

	list, total, err := svc.List(1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	require.Len(t, list[0].Replies, 1)
	assert.Equal(t, "收到", list[0].Replies[0].Content)

	// 学生不能删除他人的留言
	assert.ErrorIs(t, svc.Delete(claimsFor(student), msg.ID), util.ErrPermissionDenied)
	// 回复作者可删除自己的回复
	require.NoError(t, svc.DeleteReply(claimsFor(student), msg.ID, reply.ID))
	assert.ErrorIs(t, svc.DeleteReply(claimsFor(student), msg.ID, reply.ID), util.ErrReplyNotFound)

	require.NoError(t, svc.Delete(claimsFor(admin), msg.ID))
	assert.ErrorIs(t, svc.Delete(claimsFor(admin), msg.ID), util.ErrMessageNotFound)

	assert.Equal(t, []string{
		EventMessageCreated,
		EventReplyCreated,
		EventReplyDeleted,
		EventMessageDeleted,
	}, hub.Types())
}

func TestToggleReaction(t *testing.T) {
	svc, hub, admin, student := newMessageService(t)
	msg, err := svc.Create(admin.ID, "今天的作业")
	require.NoError(t, err)

	state, err := svc.ToggleReaction(student.ID, msg.ID, "👍")
	require.NoError(t, err)
	assert.True(t, state.Reacted)
	require.Len(t, state.Summary, 1)
	assert.Equal(t, 1, state.Summary[0].Count)

	state, err = svc.ToggleReaction(admin.ID, msg.ID, "👍")
	require.NoError(t, err)
	assert.Equal(t, 2, state.Summary[0].Count)
	assert.ElementsMatch(t, []uint{admin.ID, student.ID}, state.Summary[0].UserIDs)

	state, err = svc.ToggleReaction(student.ID, msg.ID, "👍")
	require.NoError(t, err)
	assert.False(t, state.Reacted)
	assert.Equal(t, 1, state.Summary[0].Count)

	_, err = svc.ToggleReaction(student.ID, msg.ID, " ")
	assert.ErrorIs(t, err, util.ErrEmptyContent)

	_, err = svc.ToggleReaction(student.ID, "missing", "👍")
	assert.ErrorIs(t, err, util.ErrMessageNotFound)

	assert.Len(t, hub.Types(), 4)
}
