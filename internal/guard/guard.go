package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/temcen/linucb-fashion/internal/apperr"
)

// Config holds the guard windows from spec §3/§4.7, each independently
// overridable via internal/config.
type Config struct {
	WindowGeneral     time.Duration // W_gen, 30s
	WindowSame        time.Duration // W_same, 60s
	WindowRapid       time.Duration // W_rapid, 5s
	WindowIdempotency time.Duration // W_idem, 24h
	CleanupInterval   time.Duration // 60s
}

// DefaultConfig matches the literal windows named in spec §3.
var DefaultConfig = Config{
	WindowGeneral:     30 * time.Second,
	WindowSame:        60 * time.Second,
	WindowRapid:       5 * time.Second,
	WindowIdempotency: 24 * time.Hour,
	CleanupInterval:   60 * time.Second,
}

// FeedbackKey identifies one feedback submission. The conflict windows
// key on the (session, product) pair — submitting "love" for a product
// seconds after "like" is still a rapid conflict — while Action is kept
// on the record for status inspection and batch-position reporting.
type FeedbackKey struct {
	SessionID string
	ProductID string
	Action    string
}

// pair is the map key the conflict windows use.
func (k FeedbackKey) pair() pairKey {
	return pairKey{SessionID: k.SessionID, ProductID: k.ProductID}
}

type pairKey struct {
	SessionID string
	ProductID string
}

// feedbackRecord is the stored guard state per (session, product):
// the last submitted action, its idempotency key (if any), and whether
// the feedback processor committed it.
type feedbackRecord struct {
	Action         string
	IdempotencyKey string
	Processed      bool
}

// CachedResponse is a verbatim prior response served on idempotent
// replay.
type CachedResponse struct {
	Status int
	Body   []byte
}

// Guard is C7: fingerprint dedup, feedback-specific conflict windows,
// and idempotency-key replay, each backed by a TTLMap with its own
// cleanup sweep at 2x the table's own window (the "grace tail" spec
// §4.7 asks for on status queries).
type Guard struct {
	cfg          Config
	fingerprints *TTLMap[string, struct{}]
	feedback     *TTLMap[pairKey, feedbackRecord]
	idempotent   *TTLMap[string, CachedResponse]
}

// New builds a Guard with its three tables' cleanup sweeps running at
// cfg.CleanupInterval (60s per spec §4.7), each sweeping entries older
// than 2x its own window.
func New(cfg Config) *Guard {
	return &Guard{
		cfg:          cfg,
		fingerprints: NewTTLMap[string, struct{}](cfg.CleanupInterval, 2*cfg.WindowGeneral),
		feedback:     NewTTLMap[pairKey, feedbackRecord](cfg.CleanupInterval, 2*cfg.WindowSame),
		idempotent:   NewTTLMap[string, CachedResponse](cfg.CleanupInterval, 2*cfg.WindowIdempotency),
	}
}

// Fingerprint hashes the request shape per spec §4.7:
// hash(ip, method, path, canonical(body), canonical(query)).
func Fingerprint(ip, method, path, canonicalBody, canonicalQuery string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s", ip, method, path, canonicalBody, canonicalQuery)
	return hex.EncodeToString(h.Sum(nil))
}

// CheckIdempotencyKey implements precedence step 1: a hit within W_idem
// returns the prior response verbatim for the handler to replay.
func (g *Guard) CheckIdempotencyKey(key string) (CachedResponse, bool) {
	if key == "" {
		return CachedResponse{}, false
	}
	resp, age, ok := g.idempotent.Get(key)
	if !ok || age > g.cfg.WindowIdempotency {
		return CachedResponse{}, false
	}
	return resp, true
}

// StoreIdempotentResponse records a response under an idempotency key
// for future replay.
func (g *Guard) StoreIdempotentResponse(key string, resp CachedResponse) {
	if key == "" {
		return
	}
	g.idempotent.Set(key, resp)
}

// CheckFeedback implements precedence step 2 for requests bearing a
// (session, product, action) tuple. The windows apply per (session,
// product): a different action on the same product within W_same is
// still a conflict. A nil return means the request may proceed (beyond
// W_same, or same idempotency key as before — the actual duplicate-body
// case is handled by CheckIdempotencyKey).
func (g *Guard) CheckFeedback(key FeedbackKey, idempotencyKey string) *apperr.Error {
	rec, age, ok := g.feedback.Get(key.pair())
	if !ok {
		return nil
	}

	if age <= g.cfg.WindowRapid {
		retryAfter := g.cfg.WindowRapid - age
		return apperr.New(apperr.KindRapidFeedback, "feedback for this product submitted too soon after the previous one").
			WithRetryAfter(retryAfter).
			WithDetails(map[string]interface{}{
				"type":            "rapid_feedback",
				"previous_action": rec.Action,
				"suggestion":      "wait before submitting another reaction to this product",
			})
	}

	if age <= g.cfg.WindowSame {
		if idempotencyKey != "" && idempotencyKey == rec.IdempotencyKey {
			return nil // same caller retrying with the same key; step 1 already handles the replay
		}
		retryAfter := g.cfg.WindowSame - age
		return apperr.New(apperr.KindFeedbackConflict, "feedback for this product was already recorded recently").
			WithRetryAfter(retryAfter).
			WithDetails(map[string]interface{}{
				"type":            "feedback_conflict",
				"previous_action": rec.Action,
				"suggestion":      "the existing reaction stands; retry after the conflict window to change it",
			})
	}

	return nil // beyond W_same: the user is permitted to change their mind
}

// CheckFingerprint implements precedence step 3: a general-dedup hit
// within W_gen is rejected outright.
func (g *Guard) CheckFingerprint(fp string) *apperr.Error {
	_, age, ok := g.fingerprints.Get(fp)
	if ok && age <= g.cfg.WindowGeneral {
		retryAfter := g.cfg.WindowGeneral - age
		return apperr.New(apperr.KindDuplicateRequest, "an identical request was already received").
			WithRetryAfter(retryAfter)
	}
	return nil
}

// RecordPass records bookkeeping for a request that passed all checks:
// the fingerprint always, and the feedback key when key is non-nil (with
// processed=false and idempotencyKey stored on that record). The
// idempotent response table is written separately by
// StoreIdempotentResponse.
func (g *Guard) RecordPass(fp string, key *FeedbackKey, idempotencyKey string) {
	g.fingerprints.Set(fp, struct{}{})
	if key != nil {
		g.feedback.Set(key.pair(), feedbackRecord{Action: key.Action, IdempotencyKey: idempotencyKey, Processed: false})
	}
}

// RecordFeedbackKey records a feedback key directly, used by the batch
// endpoint whose fingerprint covers the envelope as a whole rather than
// each item.
func (g *Guard) RecordFeedbackKey(key FeedbackKey, idempotencyKey string) {
	g.feedback.Set(key.pair(), feedbackRecord{Action: key.Action, IdempotencyKey: idempotencyKey, Processed: false})
}

// MarkProcessed flips a feedback guard entry's processed flag to true
// without resetting its conflict-window clock.
func (g *Guard) MarkProcessed(key FeedbackKey) {
	g.feedback.Update(key.pair(), func(r feedbackRecord) feedbackRecord {
		r.Processed = true
		return r
	})
}

// FeedbackStatus reports a guard record for the status-inspection
// endpoint, including entries within the 2x grace tail.
type FeedbackStatus struct {
	Found          bool
	Action         string
	AgeSeconds     float64
	Processed      bool
	IdempotencyKey string
}

func (g *Guard) FeedbackStatus(key FeedbackKey) FeedbackStatus {
	rec, age, ok := g.feedback.Get(key.pair())
	if !ok || rec.Action != key.Action {
		return FeedbackStatus{}
	}
	return FeedbackStatus{Found: true, Action: rec.Action, AgeSeconds: age.Seconds(), Processed: rec.Processed, IdempotencyKey: rec.IdempotencyKey}
}

// Stats reports table sizes for the duplicate-detection stats endpoint.
type Stats struct {
	Fingerprints int `json:"fingerprints"`
	Feedback     int `json:"feedback_records"`
	Idempotent   int `json:"idempotency_keys"`
}

func (g *Guard) Stats() Stats {
	return Stats{
		Fingerprints: g.fingerprints.Size(),
		Feedback:     g.feedback.Size(),
		Idempotent:   g.idempotent.Size(),
	}
}

// Reset clears all three tables (dev-only reset endpoint).
func (g *Guard) Reset() {
	g.fingerprints.Reset()
	g.feedback.Reset()
	g.idempotent.Reset()
}

// DetectIntraBatchDuplicates reports, for a slice of feedback keys in
// batch order, the index of every item whose (session, product) pair
// already occurred earlier in the same batch — two reactions to the
// same product in one batch conflict even when the actions differ. The
// returned map is index → index-of-first-occurrence.
func DetectIntraBatchDuplicates(keys []FeedbackKey) map[int]int {
	seen := make(map[pairKey]int, len(keys))
	conflicts := make(map[int]int)
	for i, k := range keys {
		if first, ok := seen[k.pair()]; ok {
			conflicts[i] = first
			continue
		}
		seen[k.pair()] = i
	}
	return conflicts
}
