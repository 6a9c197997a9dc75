package intent

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

var (
	messageRe = regexp.MustCompile(`(?s)message (\w+) \{(.*?)\n\}`)
	fieldRe   = regexp.MustCompile(`(?m)^\s*(repeated\s+)?(\w+)\s+(\w+)\s*=\s*(\d+);`)
)

func wireOf(protoType string) string {
	switch protoType {
	case "int32", "int64", "uint32", "uint64", "bool":
		return "varint"
	default:
		return "bytes"
	}
}

// schemaFields returns, per message of intent.proto, the struct tag
// fragment every field must carry: "<wire>,<number>,<opt|rep>,name=<name>".
func schemaFields(t *testing.T) map[string][]string {
	t.Helper()
	bz, err := os.ReadFile("intent.proto")
	require.NoError(t, err)

	out := make(map[string][]string)
	for _, m := range messageRe.FindAllStringSubmatch(string(bz), -1) {
		var fields []string
		for _, f := range fieldRe.FindAllStringSubmatch(m[2], -1) {
			label := "opt"
			if f[1] != "" {
				label = "rep"
			}
			fields = append(fields, fmt.Sprintf("%s,%s,%s,name=%s", wireOf(f[2]), f[4], label, f[3]))
		}
		out[m[1]] = fields
	}
	return out
}

func structFields(v interface{}) []string {
	var fields []string
	typ := reflect.TypeOf(v).Elem()
	for i := 0; i < typ.NumField(); i++ {
		tag, ok := typ.Field(i).Tag.Lookup("protobuf")
		if !ok {
			continue
		}
		parts := strings.Split(tag, ",")
		fields = append(fields, strings.Join(parts[:4], ","))
	}
	return fields
}

// TestCodecMatchesSchema keeps the hand-maintained codec in step with
// intent.proto until it is replaced by generated code.
func TestCodecMatchesSchema(t *testing.T) {
	codec := map[string][]string{
		"Asset":                    structFields(&Asset{}),
		"Intent":                   structFields(&Intent{}),
		"IntentBroadcasterMessage": structFields(&IntentBroadcasterMessage{}),
		"Transfer":                 structFields(&Transfer{}),
		"Tx":                       structFields(&Tx{}),
	}
	if diff := cmp.Diff(schemaFields(t), codec); diff != "" {
		t.Fatalf("codec and intent.proto disagree (-schema +codec):\n%s", diff)
	}
}

// TestCodecUsesTaggedNumbers checks that every field the codec writes is
// encoded under the number and wire type of its struct tag.
func TestCodecUsesTaggedNumbers(t *testing.T) {
	asset := &Asset{Denom: "X", Amount: 1}
	in := &Intent{Holder: []byte{1}, Have: asset, Want: asset, Expiry: 1, Nonce: 1, Signature: []byte{2}}
	messages := []interface {
		Marshal() ([]byte, error)
	}{
		asset,
		in,
		&IntentBroadcasterMessage{Intent: in, Ttl: 1, Hops: 1},
		&Transfer{From: []byte{1}, To: []byte{2}, Asset: asset},
		&Tx{Intents: []*Intent{in}, Transfers: []*Transfer{{From: []byte{1}}}, Timestamp: 1},
	}

	for _, m := range messages {
		tagged := make(map[string]bool)
		for _, f := range structFields(m) {
			parts := strings.Split(f, ",")
			tagged[parts[0]+","+parts[1]] = true
		}

		bz, err := m.Marshal()
		require.NoError(t, err)
		written := 0
		for len(bz) > 0 {
			num, typ, n := protowire.ConsumeTag(bz)
			require.GreaterOrEqual(t, n, 0)
			wire := "varint"
			if typ == protowire.BytesType {
				wire = "bytes"
			}
			require.True(t, tagged[fmt.Sprintf("%s,%d", wire, num)], "%T writes field %d as %s", m, num, wire)
			written++

			bz = bz[n:]
			n = protowire.ConsumeFieldValue(num, typ, bz)
			require.GreaterOrEqual(t, n, 0)
			bz = bz[n:]
		}
		require.Equal(t, len(tagged), written, "%T leaves a tagged field unwritten", m)
	}
}
