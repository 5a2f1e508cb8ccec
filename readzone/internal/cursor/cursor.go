package cursor

import (
	"time"

	"github.com/pkg/errors"
	"github.com/speps/go-hashids/v2"

	"github.com/zerodice0/readzone/readzone/internal/errs"
	"github.com/zerodice0/readzone/readzone/internal/model"
)

const minLength = 12

var tabCodes = map[model.FeedTab]int64{
	model.TabRecommended: 1,
	model.TabLatest:      2,
	model.TabFollowing:   3,
}

// Codec turns feed keyset positions into opaque tokens.
type Codec struct {
	h *hashids.HashID
}

func NewCodec(salt string) (*Codec, error) {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = minLength
	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, errors.Wrap(err, "hashids.NewWithData")
	}
	return &Codec{h: h}, nil
}

func (c *Codec) Encode(tab model.FeedTab, key model.FeedKey) (string, error) {
	code, ok := tabCodes[tab]
	if !ok {
		return "", errs.Invalid("unknown feed tab")
	}
	if key.Score < 0 || key.ID <= 0 {
		return "", errs.Invalid("cursor key out of range")
	}
	return c.h.EncodeInt64([]int64{code, key.Score, key.PublishedAt.UnixMicro(), key.ID})
}

// Decode rejects tokens that are malformed or were issued for another tab.
func (c *Codec) Decode(tab model.FeedTab, token string) (model.FeedKey, error) {
	nums, err := c.h.DecodeInt64WithError(token)
	if err != nil || len(nums) != 4 {
		return model.FeedKey{}, errs.New(errs.InvalidParams, "malformed cursor").
			WithDetails(map[string]string{"field": "cursor", "value": token})
	}
	if code, ok := tabCodes[tab]; !ok || nums[0] != code || nums[3] <= 0 {
		return model.FeedKey{}, errs.New(errs.InvalidParams, "cursor does not belong to this feed").
			WithDetails(map[string]string{"field": "cursor", "value": token})
	}
	return model.FeedKey{
		Score:       nums[1],
		PublishedAt: time.UnixMicro(nums[2]).UTC(),
		ID:          nums[3],
	}, nil
}
