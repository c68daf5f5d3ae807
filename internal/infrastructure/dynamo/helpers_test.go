package dynamo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpdateExpr_SingleField(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldExpiresAt: int64(1700000000)})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", ue.Expr)
	assert.Equal(t, map[string]string{"#f0": fieldExpiresAt}, ue.Names)
	_, ok := ue.Values[":v0"]
	assert.True(t, ok)
}

func TestBuildUpdateExpr_MultipleFields_Deterministic(t *testing.T) {
	updates := map[string]interface{}{
		fieldLastSeenAt: int64(2),
		fieldExpiresAt:  int64(1),
		"connected_at":  int64(0),
	}
	ue1, err := buildUpdateExpr(updates)
	require.NoError(t, err)
	ue2, err := buildUpdateExpr(updates)
	require.NoError(t, err)

	assert.Equal(t, ue1.Expr, ue2.Expr)

	// connected_at < expires_at < last_seen_at
	assert.Equal(t, "connected_at", ue1.Names["#f0"])
	assert.Equal(t, fieldExpiresAt, ue1.Names["#f1"])
	assert.Equal(t, fieldLastSeenAt, ue1.Names["#f2"])
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1, #f2 = :v2", ue1.Expr)
}

func TestBuildUpdateExpr_ValuesMarshalledCorrectly(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldExpiresAt: int64(42)})
	require.NoError(t, err)
	av, ok := ue.Values[":v0"]
	require.True(t, ok)
	n, isNum := av.(*types.AttributeValueMemberN)
	require.True(t, isNum)
	assert.Equal(t, "42", n.Value)
}

func TestBuildUpdateExpr_EmptyMap_ReturnsError(t *testing.T) {
	_, err := buildUpdateExpr(map[string]interface{}{})
	assert.ErrorContains(t, err, "no fields to update")
}

func TestKeyBuilders(t *testing.T) {
	assert.Equal(t, "room#r1", roomPK("r1"))
	assert.Equal(t, "member#u1", memberSK("u1"))
	assert.Equal(t, "USER#u1", userPK("u1"))
	assert.Equal(t, "message#1700000000123", messageSK(1700000000123))
	assert.Equal(t, "UNREAD#1700000000123", unreadSK(1700000000123))
}

func TestPrivateRoomKey_OrderIndependent(t *testing.T) {
	a := privateRoomKey([]string{"u2", "u1", "u3"})
	b := privateRoomKey([]string{"u3", "u1", "u2", "u1"})
	assert.Equal(t, a, b)
	assert.Contains(t, a, prefixPrivate)
	assert.NotEqual(t, a, privateRoomKey([]string{"u1", "u2"}))
}

func TestNormalizeParticipants(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, NormalizeParticipants([]string{"c", "a", "", "b", "a"}))
	assert.Empty(t, NormalizeParticipants(nil))
}
