package domain

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

func decodeUUIDArray(raw datatypes.JSON) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var strs []string
	if err := json.Unmarshal(raw, &strs); err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(strs))
	for _, s := range strs {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// EncodeUUIDArray marshals a uuid slice into the datatypes.JSON shape the
// Dependencies column expects.
func EncodeUUIDArray(ids []uuid.UUID) datatypes.JSON {
	if len(ids) == 0 {
		return nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	raw, _ := json.Marshal(strs)
	return datatypes.JSON(raw)
}
