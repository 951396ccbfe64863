package parcel

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
)

// envelopeVersion is the sealed document format written by Encode.
const envelopeVersion = 1

var errMalformedEnvelope = errors.New("malformed sealed envelope")

// envelope is the JSON document stored in a sealed payload. Exactly one of
// Doc (field-level encryption) or Ciphertext (whole document) is set.
type envelope struct {
	Version    int             `json:"v"`
	KeyID      string          `json:"kid"`
	Sealed     [][]string      `json:"sealed,omitempty"` // concrete paths; array elements by index
	Doc        json.RawMessage `json:"doc,omitempty"`
	Ciphertext []byte          `json:"ct,omitempty"`
}

// SealOption configures a SealedCodec.
type SealOption func(*SealedCodec)

// WithWholeDocument encrypts the entire JSON document even when a type
// declares sealed fields.
func WithWholeDocument() SealOption {
	return func(c *SealedCodec) { c.whole = true }
}

// SealedCodec is the json/plain codec that encrypts with a Keyring.
// It accepts every value; register it after more specific codecs.
//
// SealedCodec is safe for concurrent use. Rotate swaps the keyring
// atomically; in-flight calls finish with the keyring they loaded.
type SealedCodec struct {
	ring  atomic.Pointer[Keyring]
	whole bool
}

// SealedJSON returns an encrypting JSON codec using ring.
func SealedJSON(ring *Keyring, opts ...SealOption) (*SealedCodec, error) {
	if err := usableRing(ring); err != nil {
		return nil, err
	}
	c := &SealedCodec{}
	for _, opt := range opts {
		opt(c)
	}
	c.ring.Store(ring)
	return c, nil
}

// Encoding returns json/plain. The tag does not advertise encryption.
func (c *SealedCodec) Encoding() string { return EncodingJSON }

// Keyring returns the keyring currently in use.
func (c *SealedCodec) Keyring() *Keyring {
	return c.ring.Load()
}

// Rotate replaces the keyring used for subsequent calls.
func (c *SealedCodec) Rotate(ring *Keyring) error {
	if err := usableRing(ring); err != nil {
		return err
	}
	c.ring.Store(ring)
	return nil
}

func usableRing(ring *Keyring) error {
	if ring == nil {
		return fmt.Errorf("%w: keyring is nil", ErrInvalidKey)
	}
	if ring.Len() == 0 {
		return fmt.Errorf("%w: keyring has no keys; use NewKeyring", ErrInvalidKey)
	}
	return nil
}

// Encode marshals value to JSON and encrypts it with the current key.
func (c *SealedCodec) Encode(value any) (*Payload, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, newSerializationError(EncodingJSON, value, err)
	}

	key := c.ring.Load().Current()
	env := envelope{Version: envelopeVersion, KeyID: key.id}

	var paths [][]string
	if !c.whole {
		paths, err = sealPaths(value)
		if err != nil {
			return nil, newSerializationError(EncodingJSON, value, err)
		}
	}

	if len(paths) == 0 {
		env.Ciphertext, err = key.enc.Encrypt(data)
		if err != nil {
			return nil, newSerializationError(EncodingJSON, value, fmt.Errorf("encrypt: %w", err))
		}
	} else {
		env.Doc, env.Sealed, err = sealFields(data, paths, key.enc)
		if err != nil {
			return nil, newSerializationError(EncodingJSON, value, err)
		}
	}

	out, err := json.Marshal(&env)
	if err != nil {
		return nil, newSerializationError(EncodingJSON, value, err)
	}
	return NewPayload(EncodingJSON, out, nil), nil
}

// Decode parses the envelope, decrypts it and unmarshals into valuePtr.
// The key named in the envelope is tried first, then every other keyring
// key in priority order. If none decrypts, the error is a
// *DecryptionExhaustedError.
func (c *SealedCodec) Decode(p *Payload, valuePtr any) error {
	if p.IsEmpty() {
		if err := setZero(valuePtr); err != nil {
			return newDeserializationError(EncodingJSON, p, valuePtr, err)
		}
		return nil
	}
	if _, err := targetValue(valuePtr); err != nil {
		return newDeserializationError(EncodingJSON, p, valuePtr, err)
	}

	env, err := parseEnvelope(p.data)
	if err != nil {
		return newDeserializationError(EncodingJSON, p, valuePtr, err)
	}

	var doc *sealedDoc
	if env.Doc != nil {
		doc, err = parseSealedDoc(env)
		if err != nil {
			return newDeserializationError(EncodingJSON, p, valuePtr, err)
		}
	}

	plaintext, err := c.open(context.Background(), c.ring.Load(), env, doc)
	if err != nil {
		var exhausted *DecryptionExhaustedError
		if errors.As(err, &exhausted) {
			return err
		}
		return newDeserializationError(EncodingJSON, p, valuePtr, err)
	}

	if err := json.Unmarshal(plaintext, valuePtr); err != nil {
		return newDeserializationError(EncodingJSON, p, valuePtr, err)
	}
	return nil
}

// open decrypts env with the embedded key first and then the remaining
// candidates. Every failed attempt is kept as a cause.
func (c *SealedCodec) open(ctx context.Context, ring *Keyring, env *envelope, doc *sealedDoc) ([]byte, error) {
	order := make([]Key, 0, ring.Len())
	if k, ok := ring.Lookup(env.KeyID); ok {
		order = append(order, k)
	}
	for _, k := range ring.Candidates() {
		if k.id != env.KeyID {
			order = append(order, k)
		}
	}

	causes := make([]error, 0, len(order))
	for i, k := range order {
		var (
			plaintext []byte
			err       error
		)
		if doc != nil {
			plaintext, err = doc.open(k.enc)
		} else {
			plaintext, err = k.enc.Decrypt(env.Ciphertext)
		}
		if err == nil {
			if k.id != env.KeyID {
				emitKeyMismatch(ctx, env.KeyID, k.id, i+1)
			}
			return plaintext, nil
		}
		if errors.Is(err, errMalformedEnvelope) {
			// Authenticated plaintext that is not JSON: no other key can fix it.
			return nil, err
		}
		causes = append(causes, fmt.Errorf("key %q: %w", k.id, err))
		emitKeyFallback(ctx, k.id, i+1, err)
	}

	exhausted := &DecryptionExhaustedError{
		KeyID:    env.KeyID,
		Attempts: len(order),
		Causes:   causes,
	}
	emitDecryptExhausted(ctx, env.KeyID, len(order), exhausted)
	return nil, exhausted
}

func parseEnvelope(data []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedEnvelope, err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", errMalformedEnvelope, env.Version)
	}
	if env.KeyID == "" {
		return nil, fmt.Errorf("%w: missing key id", errMalformedEnvelope)
	}
	if (env.Doc == nil) == (env.Ciphertext == nil) {
		return nil, fmt.Errorf("%w: expected exactly one of doc or ct", errMalformedEnvelope)
	}
	return &env, nil
}

// sealPaths picks the field paths to encrypt for value.
func sealPaths(value any) ([][]string, error) {
	if f, ok := value.(SealedFielder); ok {
		return splitPaths(f.SealedFields()), nil
	}
	t := reflect.TypeOf(value)
	if t == nil {
		return nil, nil
	}
	plan, err := planFor(t)
	if err != nil {
		return nil, err
	}
	return plan.paths, nil
}

// decodeTree parses JSON into a generic tree, keeping numbers verbatim.
func decodeTree(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// slot addresses one value inside a decoded JSON tree: a member of an
// object or an element of an array.
type slot struct {
	obj map[string]any
	arr []any
	key string
	idx int
}

func (s slot) get() any {
	if s.obj != nil {
		return s.obj[s.key]
	}
	return s.arr[s.idx]
}

func (s slot) set(v any) {
	if s.obj != nil {
		s.obj[s.key] = v
		return
	}
	s.arr[s.idx] = v
}

// arrayIndex parses seg as a canonical index into arr.
func arrayIndex(arr []any, seg string) (int, bool) {
	i, err := strconv.Atoi(seg)
	if err != nil || i < 0 || i >= len(arr) || strconv.Itoa(i) != seg {
		return 0, false
	}
	return i, true
}

// lookupSlot resolves a concrete path. Array elements are addressed by
// decimal index.
func lookupSlot(tree any, path []string) (slot, bool) {
	cur := tree
	for _, seg := range path[:len(path)-1] {
		switch n := cur.(type) {
		case map[string]any:
			v, ok := n[seg]
			if !ok {
				return slot{}, false
			}
			cur = v
		case []any:
			i, ok := arrayIndex(n, seg)
			if !ok {
				return slot{}, false
			}
			cur = n[i]
		default:
			return slot{}, false
		}
	}

	last := path[len(path)-1]
	switch n := cur.(type) {
	case map[string]any:
		if _, ok := n[last]; ok {
			return slot{obj: n, key: last}, true
		}
	case []any:
		if i, ok := arrayIndex(n, last); ok {
			return slot{arr: n, idx: i}, true
		}
	}
	return slot{}, false
}

// expandPath appends to out the concrete path of every present, non-null
// value matched by rest below node. Wildcard segments fan out over array
// elements and object members. A segment that meets a scalar is an error:
// the document does not have the shape the path describes.
func expandPath(node any, at, rest []string, out [][]string) ([][]string, error) {
	if len(rest) == 0 {
		if node == nil {
			return out, nil
		}
		return append(out, slices.Clone(at)), nil
	}

	seg, rest := rest[0], rest[1:]
	var err error
	switch n := node.(type) {
	case nil:
		return out, nil
	case map[string]any:
		if seg != Wildcard {
			v, ok := n[seg]
			if !ok {
				return out, nil
			}
			return expandPath(v, append(at, seg), rest, out)
		}
		for _, k := range slices.Sorted(maps.Keys(n)) {
			if out, err = expandPath(n[k], append(at, k), rest, out); err != nil {
				return nil, err
			}
		}
		return out, nil
	case []any:
		if seg != Wildcard {
			i, ok := arrayIndex(n, seg)
			if !ok {
				return nil, fmt.Errorf("segment %q does not index an array of %d", seg, len(n))
			}
			return expandPath(n[i], append(at, seg), rest, out)
		}
		for i, v := range n {
			if out, err = expandPath(v, append(at, strconv.Itoa(i)), rest, out); err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("segment %q reaches a %T, not an object or array", seg, node)
	}
}

// dropNested removes duplicate paths and paths lying under another path,
// keeping the first occurrence order. Sealing a parent covers its children.
func dropNested(paths [][]string) [][]string {
	all := make(map[string]bool, len(paths))
	for _, p := range paths {
		all[strings.Join(p, "\x00")] = true
	}

	out := make([][]string, 0, len(paths))
	emitted := make(map[string]bool, len(paths))
next:
	for _, p := range paths {
		for i := 1; i < len(p); i++ {
			if all[strings.Join(p[:i], "\x00")] {
				continue next
			}
		}
		k := strings.Join(p, "\x00")
		if emitted[k] {
			continue
		}
		emitted[k] = true
		out = append(out, p)
	}
	return out
}

// sealFields replaces each present, non-null value matched by paths with
// the base64 ciphertext of its JSON text and returns the concrete paths
// sealed.
func sealFields(data []byte, paths [][]string, enc Encryptor) (json.RawMessage, [][]string, error) {
	tree, err := decodeTree(data)
	if err != nil {
		return nil, nil, err
	}

	var concrete [][]string
	for _, path := range paths {
		concrete, err = expandPath(tree, nil, path, concrete)
		if err != nil {
			return nil, nil, fmt.Errorf("sealed path %s: %w", strings.Join(path, "."), err)
		}
	}
	concrete = dropNested(concrete)

	for _, path := range concrete {
		s, _ := lookupSlot(tree, path)
		raw, err := json.Marshal(s.get())
		if err != nil {
			return nil, nil, err
		}
		ct, err := enc.Encrypt(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("encrypt: %w", err)
		}
		s.set(base64.StdEncoding.EncodeToString(ct))
	}

	doc, err := json.Marshal(tree)
	if err != nil {
		return nil, nil, err
	}
	return doc, concrete, nil
}

// sealedDoc is a parsed field-level envelope awaiting decryption.
type sealedDoc struct {
	tree  any
	slots []sealedSlot
}

type sealedSlot struct {
	slot
	path       []string
	ciphertext []byte
}

// parseSealedDoc validates the document structure once, before any key is tried.
func parseSealedDoc(env *envelope) (*sealedDoc, error) {
	tree, err := decodeTree(env.Doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedEnvelope, err)
	}

	doc := &sealedDoc{tree: tree, slots: make([]sealedSlot, 0, len(env.Sealed))}
	for _, path := range env.Sealed {
		if len(path) == 0 {
			return nil, fmt.Errorf("%w: empty sealed path", errMalformedEnvelope)
		}
		sl, ok := lookupSlot(tree, path)
		if !ok {
			return nil, fmt.Errorf("%w: sealed path %v not found", errMalformedEnvelope, path)
		}
		s, ok := sl.get().(string)
		if !ok {
			return nil, fmt.Errorf("%w: sealed path %v is not a string", errMalformedEnvelope, path)
		}
		ct, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: sealed path %v: %w", errMalformedEnvelope, path, err)
		}
		doc.slots = append(doc.slots, sealedSlot{slot: sl, path: path, ciphertext: ct})
	}
	return doc, nil
}

// open decrypts every slot with enc. The tree is only modified once all
// slots decrypt, so a failed attempt leaves it intact for the next key.
func (d *sealedDoc) open(enc Encryptor) ([]byte, error) {
	plaintexts := make([][]byte, len(d.slots))
	for i, s := range d.slots {
		pt, err := enc.Decrypt(s.ciphertext)
		if err != nil {
			return nil, err
		}
		plaintexts[i] = pt
	}

	for i, s := range d.slots {
		v, err := decodeTree(plaintexts[i])
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %w", errMalformedEnvelope, strings.Join(s.path, "."), err)
		}
		s.set(v)
	}

	return json.Marshal(d.tree)
}
