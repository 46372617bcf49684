package dal

import (
	"strings"

	"homeapi-backend/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// EncodeItem converts a typed record into its table representation. The
// record's attributes are marshaled as-is (optional fields marked omitempty
// are never written as explicit NULLs) and the pk/sk pair is derived from the
// record's own key methods.
func EncodeItem(rec models.Item) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, &DecodeError{Reason: "marshal record", Err: err}
	}
	av["pk"] = &types.AttributeValueMemberS{Value: rec.PK()}
	av["sk"] = &types.AttributeValueMemberS{Value: rec.SKPrefix() + rec.SKValue()}
	return av, nil
}

// DecodeItem converts a raw table item back into a typed record. It fails
// when pk or sk is missing, when the sort key does not carry the type's
// declared prefix, or when the undecorated sort-key value cannot be restored
// into the record's identity fields.
func DecodeItem[T any, PT interface {
	*T
	models.KeyedItem
}](item map[string]types.AttributeValue) (*T, error) {
	pk, ok := item["pk"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, &DecodeError{Reason: "missing pk attribute"}
	}
	sk, ok := item["sk"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, &DecodeError{Reason: "missing sk attribute"}
	}

	var rec T
	ptr := PT(&rec)

	skValue, ok := strings.CutPrefix(sk.Value, ptr.SKPrefix())
	if !ok {
		return nil, &DecodeError{Reason: "sort key missing prefix " + ptr.SKPrefix()}
	}

	if err := attributevalue.UnmarshalMap(item, ptr); err != nil {
		return nil, &DecodeError{Reason: "unmarshal record", Err: err}
	}
	if err := ptr.SetKey(pk.Value, skValue); err != nil {
		return nil, &DecodeError{Reason: "restore key fields", Err: err}
	}
	return &rec, nil
}

// DecodeItems decodes a query result list, failing on the first bad row.
func DecodeItems[T any, PT interface {
	*T
	models.KeyedItem
}](items []map[string]types.AttributeValue) ([]*T, error) {
	out := make([]*T, 0, len(items))
	for _, item := range items {
		rec, err := DecodeItem[T, PT](item)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
