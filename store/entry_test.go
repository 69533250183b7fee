package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEntryJSON(t *testing.T) {
	first := time.Date(2020, 4, 10, 12, 0, 0, 0, time.UTC)
	e := Entry{
		RPI:       "ebaca2b735c90d01c361e8ca6ec167f2",
		AEM:       "00000000",
		MaxRSSI:   -58,
		MeanRSSI:  -61.5,
		NScans:    4,
		FirstSeen: first,
		LastSeen:  first.Add(90 * time.Second).In(time.FixedZone("CEST", 2*60*60)),
	}

	b, err := json.Marshal(e)
	require.NoError(t, err)
	require.Equal(t,
		`{"aem":"00000000","firstSeen":"2020-04-10T12:00:00+0000","lastSeen":"2020-04-10T14:01:30+0200",`+
			`"maxRssi":-58,"meanRssi":-61.50,"nScans":4,"rpi":"ebaca2b735c90d01c361e8ca6ec167f2"}`,
		string(b))
	require.Equal(t, string(b), e.String())
}

func TestEntryJSONMeanDigits(t *testing.T) {
	for mean, want := range map[float64]string{
		-50:        "-50.00",
		-67.123456: "-67.12",
		-100.26:    "-100.3",
		-7:         "-7.000",
	} {
		b, err := json.Marshal(Entry{MeanRSSI: mean})
		require.NoError(t, err)
		var decoded map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(b, &decoded))
		require.Equal(t, want, string(decoded["meanRssi"]), "mean %v", mean)
	}
}
