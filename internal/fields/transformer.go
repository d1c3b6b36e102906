package fields

import (
	"encoding/json"
	"log"
	"strconv"

	"fieldguard/internal/cipher"
)

// Result reports the per-path outcome of an Encrypt or Decrypt pass. A
// failed path is left in its prior state (plaintext after a failed encrypt,
// ciphertext after a failed decrypt) rather than dropped or blanked; callers
// that cannot tolerate partial application must check FullyApplied.
type Result struct {
	Applied []string
	Skipped []string
	Failed  []string
}

// FullyApplied reports whether no declared path failed.
func (r Result) FullyApplied() bool { return len(r.Failed) == 0 }

// Transformer applies a Spec to records. It holds no state between calls
// beyond its logger.
type Transformer struct {
	logger *log.Logger
}

func NewTransformer(logger *log.Logger) *Transformer {
	if logger == nil {
		logger = log.Default()
	}
	return &Transformer{logger: logger}
}

// Encrypt deep-copies record and encrypts every declared path in the copy.
// Absent paths and nil or non-scalar values are skipped; already-encrypted
// values are skipped, which makes a second pass a no-op. A path whose
// encryption fails is logged, reported in Result.Failed, and left in
// plaintext in the returned record.
func (t *Transformer) Encrypt(record map[string]any, spec Spec, passphrase string) (map[string]any, Result) {
	out := deepCopy(record)
	var res Result
	for _, p := range spec.Paths {
		v, present := p.lookup(out)
		if !present || v == nil {
			res.Skipped = append(res.Skipped, p.String())
			continue
		}
		s, scalar := stringify(v)
		if !scalar {
			res.Skipped = append(res.Skipped, p.String())
			continue
		}
		if cipher.IsEncryptedValue(s) {
			res.Skipped = append(res.Skipped, p.String())
			continue
		}
		enc, err := cipher.EncryptWithMarker(s, passphrase)
		if err != nil {
			t.logger.Printf("fields: encrypt %s.%s: %v", spec.Kind, p, err)
			res.Failed = append(res.Failed, p.String())
			continue
		}
		if !p.store(out, enc) {
			t.logger.Printf("fields: encrypt %s.%s: path blocked by non-object value", spec.Kind, p)
			res.Failed = append(res.Failed, p.String())
			continue
		}
		res.Applied = append(res.Applied, p.String())
	}
	return out, res
}

// Decrypt is the inverse pass: every declared path holding a marked value is
// decrypted in the copy. A path that fails to decrypt keeps its ciphertext
// in the result so data loss is never masked as absence.
func (t *Transformer) Decrypt(record map[string]any, spec Spec, passphrase string) (map[string]any, Result) {
	out := deepCopy(record)
	var res Result
	for _, p := range spec.Paths {
		v, present := p.lookup(out)
		if !present || v == nil {
			res.Skipped = append(res.Skipped, p.String())
			continue
		}
		s, isString := v.(string)
		if !isString || !cipher.IsEncryptedValue(s) {
			res.Skipped = append(res.Skipped, p.String())
			continue
		}
		pt, err := cipher.DecryptWithMarker(s, passphrase)
		if err != nil {
			t.logger.Printf("fields: decrypt %s.%s: %v", spec.Kind, p, err)
			res.Failed = append(res.Failed, p.String())
			continue
		}
		p.store(out, pt)
		res.Applied = append(res.Applied, p.String())
	}
	return out, res
}

// Project copies only the projection's whitelisted top-level keys into a new
// map. Iteration is over the whitelist, never over the source's own keys, so
// no unlisted key can appear in the output whatever the input contains.
func Project(record map[string]any, proj Projection) map[string]any {
	out := make(map[string]any, len(proj.Keys))
	for _, k := range proj.Keys {
		if v, ok := record[k]; ok {
			out[k] = deepCopyValue(v)
		}
	}
	return out
}

// stringify renders a scalar as the string the cipher will seal. Maps and
// slices are not scalars and are reported as such.
func stringify(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case json.Number:
		return x.String(), true
	default:
		return "", false
	}
}

func deepCopy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return deepCopy(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return x
	}
}
