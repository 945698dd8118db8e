package dsw

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeCfEmail(email string, key byte) string {
	raw := []byte{key}
	for i := 0; i < len(email); i++ {
		raw = append(raw, email[i]^key)
	}
	return hex.EncodeToString(raw)
}

func TestDecodeCfEmail(t *testing.T) {
	cases := []struct {
		payload string
		expect  string
	}{
		{
			payload: "42286c292d35232e31292b022631356c2726376c322e",
			expect:  "j.kowalski@dsw.edu.pl",
		},
		{
			payload: "#177679797639797860767c577364603972736239677b",
			expect:  "anna.nowak@dsw.edu.pl",
		},
		{
			payload: encodeCfEmail("żółć@uczelnia.pl", 0x99),
			expect:  "żółć@uczelnia.pl",
		},
	}

	for _, test := range cases {
		got, err := DecodeCfEmail(test.payload)
		require.NoError(t, err)
		require.Equal(t, test.expect, got)
	}
}

func TestDecodeCfEmailRejectsGarbage(t *testing.T) {
	for _, payload := range []string{"", "42", "4", "xyz!", "42абв"} {
		_, err := DecodeCfEmail(payload)
		require.Error(t, err, "payload %q", payload)
	}
}
