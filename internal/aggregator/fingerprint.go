package aggregator

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/engindearing-projects/omniTAK-sub001/internal/cot"
)

// Fingerprint is the fixed-size dedup key: the CoT uid when parseable,
// otherwise a 128-bit hash of the whole payload obtained by hashing
// twice with different seeds, matching the "fixed-size value, e.g.
// 128-bit hash" requirement without pulling in a cryptographic hash
// library the pack never uses for this kind of high-volume keying.
type Fingerprint [16]byte

// Extract parses enough of payload to find the root event's uid
// attribute. A parse failure is tolerated: it falls back to hashing the
// full payload and reports ok=false so the caller can count a
// parse-failure without ever rejecting the message.
func Extract(payload []byte) (fp Fingerprint, ok bool) {
	ev, err := cot.Parse(payload)
	if err != nil || ev.UID == "" {
		return hashPayload(payload), false
	}
	return hashString(ev.UID), true
}

func hashString(s string) Fingerprint {
	var fp Fingerprint
	h1 := xxhash.Sum64String(s)
	h2 := xxhash.Sum64([]byte("omnitak-fp-salt:" + s))
	binary.BigEndian.PutUint64(fp[0:8], h1)
	binary.BigEndian.PutUint64(fp[8:16], h2)
	return fp
}

func hashPayload(payload []byte) Fingerprint {
	var fp Fingerprint
	h1 := xxhash.Sum64(payload)
	h2 := xxhash.New()
	h2.Write([]byte{0xa5})
	h2.Write(payload)
	binary.BigEndian.PutUint64(fp[0:8], h1)
	binary.BigEndian.PutUint64(fp[8:16], h2.Sum64())
	return fp
}
