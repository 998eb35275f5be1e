// Package vault stores small shared files as base64 data references.
package vault

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"siteadmin/internal/logging"
	"siteadmin/internal/state"
	"siteadmin/internal/store"
)

// Limits bounds the vault
type Limits struct {
	MaxFiles     int   // newest files kept on every commit
	Fallback     int   // newest files kept when storage is full
	MaxFileBytes int64 // per-file admission cap
}

// Descriptor is one file offered for upload
type Descriptor struct {
	Name    string
	Size    int64
	Type    string
	Content []byte
}

// Rejection explains why a descriptor was not admitted
type Rejection struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// UploadResult reports the outcome of one batch
type UploadResult struct {
	Admitted []string    `json:"admitted"`
	Rejected []Rejection `json:"rejected"`
}

// Entry is a file as presented for listing
type Entry struct {
	Index        int    `json:"index"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	HumanSize    string `json:"humanSize"`
	Type         string `json:"type"`
	UploadedBy   string `json:"uploadedBy"`
	Timestamp    int64  `json:"timestamp"`
	Downloadable bool   `json:"downloadable"`
}

// Vault is the bounded file collection
type Vault struct {
	store     *store.Store
	gate      state.Identity
	recorder  state.Recorder
	limits    Limits
	logger    *logging.Logger
	now       func() time.Time
	observers state.Observers
}

// New creates a vault
func New(st *store.Store, gate state.Identity, recorder state.Recorder, limits Limits, logger *logging.Logger) *Vault {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Vault{
		store:    st,
		gate:     gate,
		recorder: recorder,
		limits:   limits,
		logger:   logger,
		now:      time.Now,
	}
}

// Observe registers a callback run after every successful mutation
func (v *Vault) Observe(fn state.Observer) {
	v.observers.Add(fn)
}

// List returns stored files oldest first
func (v *Vault) List(ctx context.Context) []state.SharedFile {
	return store.Load[state.SharedFile](ctx, v.store, store.KeyFiles)
}

// Entries returns the listing with download eligibility resolved per file
func (v *Vault) Entries(ctx context.Context) []Entry {
	files := v.List(ctx)
	entries := make([]Entry, len(files))
	for i, f := range files {
		_, ok := DownloadTarget(f)
		if !ok {
			v.logger.Warn("File %q has an invalid data reference, download disabled", f.Name)
		}
		entries[i] = Entry{
			Index:        i,
			Name:         f.Name,
			Size:         f.Size,
			HumanSize:    humanize.Bytes(uint64(max(f.Size, 0))),
			Type:         f.Type,
			UploadedBy:   f.UploadedBy,
			Timestamp:    f.Timestamp,
			Downloadable: ok,
		}
	}
	return entries
}

// Upload admits every descriptor within the size cap, encodes them
// concurrently and commits the batch in a single write once all encodes
// have finished.
func (v *Vault) Upload(ctx context.Context, descs []Descriptor) (UploadResult, error) {
	var result UploadResult

	user, ok := v.gate.CurrentUser()
	if !ok {
		return result, state.ErrUnauthorized
	}

	var accepted []Descriptor
	for _, d := range descs {
		size := max(d.Size, int64(len(d.Content)))
		if size > v.limits.MaxFileBytes {
			reason := fmt.Sprintf("file is %s, limit is %s",
				humanize.Bytes(uint64(size)), humanize.Bytes(uint64(v.limits.MaxFileBytes)))
			v.logger.Info("Rejected upload %q from %s: %s", d.Name, user, reason)
			result.Rejected = append(result.Rejected, Rejection{Name: d.Name, Reason: reason})
			continue
		}
		accepted = append(accepted, d)
	}

	if len(accepted) == 0 {
		return result, fmt.Errorf("%w: no file within the %s limit", state.ErrValidation,
			humanize.Bytes(uint64(v.limits.MaxFileBytes)))
	}

	encoded := make([]state.SharedFile, len(accepted))
	var wg sync.WaitGroup
	for i, d := range accepted {
		wg.Add(1)
		go func(i int, d Descriptor) {
			defer wg.Done()
			mediaType := NormalizeMediaType(d.Type)
			encoded[i] = state.SharedFile{
				Name:       d.Name,
				Size:       max(d.Size, int64(len(d.Content))),
				Type:       mediaType,
				Data:       EncodeDataURL(mediaType, d.Content),
				UploadedBy: user,
				Timestamp:  v.now().UnixMilli(),
			}
		}(i, d)
	}
	wg.Wait()

	files := v.List(ctx)
	files = append(files, encoded...)
	files = store.KeepLast(files, v.limits.MaxFiles)

	if _, err := store.SaveTruncated(ctx, v.store, store.KeyFiles, files, v.limits.Fallback); err != nil {
		return result, err
	}

	for _, f := range encoded {
		result.Admitted = append(result.Admitted, f.Name)
	}

	v.logger.Info("%s uploaded %d file(s), %d rejected", user, len(encoded), len(result.Rejected))
	v.recorder.Record(ctx, state.ActivityFileUpload, fmt.Sprintf("Uploaded %d file(s)", len(encoded)), user)
	v.observers.Notify(ctx, state.Event{Collection: store.KeyFiles, Action: state.ActivityFileUpload, User: user})
	return result, nil
}

// Remove deletes the file at index
func (v *Vault) Remove(ctx context.Context, index int) error {
	user, ok := v.gate.CurrentUser()
	if !ok {
		return state.ErrUnauthorized
	}

	files := v.List(ctx)
	if err := state.CheckIndex(index, len(files)); err != nil {
		return err
	}

	removed := files[index]
	files = append(files[:index:index], files[index+1:]...)

	if err := store.Save(ctx, v.store, store.KeyFiles, files); err != nil {
		return err
	}

	v.logger.Info("%s removed file %q", user, removed.Name)
	v.recorder.Record(ctx, state.ActivityFileRemove, "Removed file "+removed.Name, user)
	v.observers.Notify(ctx, state.Event{Collection: store.KeyFiles, Action: state.ActivityFileRemove, User: user})
	return nil
}

var (
	dataURLPattern   = regexp.MustCompile(`^data:([a-zA-Z0-9!#$&^_.+-]+/[a-zA-Z0-9!#$&^_.+-]+)?(;[a-zA-Z0-9=._+-]+)*;base64,([A-Za-z0-9+/]*={0,2})$`)
	mediaTypePattern = regexp.MustCompile(`^[a-zA-Z0-9!#$&^_.+-]+/[a-zA-Z0-9!#$&^_.+-]+$`)
	paramPattern     = regexp.MustCompile(`^[a-zA-Z0-9._+-]+$`)
)

const defaultMediaType = "application/octet-stream"

// NormalizeMediaType rewrites a Content-Type value into the compact form a
// data reference accepts: "type/subtype;key=value" with sorted parameters and
// no whitespace. Parameters that cannot be written that way are dropped, and
// anything unparseable becomes application/octet-stream.
func NormalizeMediaType(raw string) string {
	mt, params, err := mime.ParseMediaType(raw)
	if err != nil || !mediaTypePattern.MatchString(mt) {
		return defaultMediaType
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(mt)
	for _, k := range keys {
		v := params[k]
		if !paramPattern.MatchString(k) || !paramPattern.MatchString(v) {
			continue
		}
		b.WriteString(";" + k + "=" + v)
	}
	return b.String()
}

// EncodeDataURL builds the self-describing payload stored for a file
func EncodeDataURL(mediaType string, content []byte) string {
	return "data:" + NormalizeMediaType(mediaType) + ";base64," + base64.StdEncoding.EncodeToString(content)
}

// DownloadTarget returns the file's data reference when it is safe to use
// as a download link.
func DownloadTarget(f state.SharedFile) (string, bool) {
	if _, _, err := DecodeDataURL(f.Data); err != nil {
		return "", false
	}
	return f.Data, true
}

// DecodeDataURL parses a base64 data reference into its MIME type and bytes
func DecodeDataURL(ref string) (string, []byte, error) {
	m := dataURLPattern.FindStringSubmatch(ref)
	if m == nil {
		return "", nil, fmt.Errorf("%w: not a base64 data reference", state.ErrValidation)
	}
	data, err := base64.StdEncoding.DecodeString(m[3])
	if err != nil {
		return "", nil, fmt.Errorf("%w: bad base64 payload: %v", state.ErrValidation, err)
	}
	mediaType := m[1]
	if mediaType == "" {
		mediaType = defaultMediaType
	}
	return strings.ToLower(mediaType), data, nil
}
