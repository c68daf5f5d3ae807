package dynamo

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Single-table key prefixes for the chat table.
const (
	prefixRoom    = "room#"
	prefixMessage = "message#"
	prefixMember  = "member#"
	prefixPrivate = "private#"
	prefixUser    = "USER#"
	prefixUnread  = "UNREAD#"

	skPrivateRoom = "room"
)

func roomPK(roomID string) string   { return prefixRoom + roomID }
func memberSK(userID string) string { return prefixMember + userID }
func userPK(userID string) string   { return prefixUser + userID }

func messageSK(ts int64) string { return prefixMessage + strconv.FormatInt(ts, 10) }
func unreadSK(ts int64) string  { return prefixUnread + strconv.FormatInt(ts, 10) }

// compositeKey builds a DynamoDB primary key with two string attributes (PK + SK).
func compositeKey(pkName, pkValue, skName, skValue string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		pkName: &types.AttributeValueMemberS{Value: pkValue},
		skName: &types.AttributeValueMemberS{Value: skValue},
	}
}

// chatKey is the pk/sk key of an item in the chat table.
func chatKey(pk, sk string) map[string]types.AttributeValue {
	return compositeKey(attrPK, pk, attrSK, sk)
}

func strVal(v string) *types.AttributeValueMemberS {
	return &types.AttributeValueMemberS{Value: v}
}

// updateExpr is a ready-to-send SET expression.
type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts a map of field->value into a DynamoDB SET expression.
// Fields are emitted in sorted order so the expression is deterministic.
func buildUpdateExpr(updates map[string]interface{}) (*updateExpr, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ue := &updateExpr{
		Expr:   "SET ",
		Names:  make(map[string]string, len(keys)),
		Values: make(map[string]types.AttributeValue, len(keys)),
	}
	for i, k := range keys {
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(updates[k])
		if err != nil {
			return nil, fmt.Errorf("marshal field %s: %w", k, err)
		}
		ue.Names[nameKey] = k
		ue.Values[valueKey] = av
		if i > 0 {
			ue.Expr += ", "
		}
		ue.Expr += fmt.Sprintf("%s = %s", nameKey, valueKey)
	}
	return ue, nil
}
