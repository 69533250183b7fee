package responses

import (
	"sort"

	"github.com/denysvitali/proximity-go/model"
	"github.com/denysvitali/proximity-go/store"
)

type Key struct {
	ID            string               `json:"key_id"`
	Alias         string               `json:"alias"`
	Type          string               `json:"type"`
	KeyInfo       model.KeyInfo        `json:"key_info"`
	Advertisement *model.Advertisement `json:"advertisement,omitempty"`
}

type ByKeyID []Key

func (b ByKeyID) Len() int {
	return len(b)
}

func (b ByKeyID) Less(i, j int) bool {
	return b[i].ID < b[j].ID
}

func (b ByKeyID) Swap(i, j int) {
	b[i], b[j] = b[j], b[i]
}

var _ sort.Interface = ByKeyID{}

type Scan struct {
	Strongest *store.Entry `json:"strongest"`
	Ingested  int          `json:"ingested"`
	Skipped   int          `json:"skipped"`
	Nearby    int          `json:"nearby"`
}
