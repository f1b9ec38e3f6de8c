// Package bandit implements C2, the per-session LinUCB contextual bandit:
// a symmetric positive-definite design matrix A, an accumulator b, and
// the derived preference vector θ = A⁻¹b, scored and updated via gonum's
// mat package the way the teacher's ml services use gonum/mat.Dense for
// its embedding math.
package bandit

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/temcen/linucb-fashion/internal/apperr"
)

// Reward values for the fixed reward map (spec §4.2). Skip and Neutral
// are configurable per the §9 Open Questions; Love/Like/Dislike are
// fixed.
const (
	RewardLove    = 2.0
	RewardLike    = 1.0
	RewardDislike = -1.0
)

const (
	// DefaultLambda is the ridge regularization term added to the
	// identity initialization and to the first retry of a failed solve.
	DefaultLambda = 0.01
	AlphaMax      = 2.0
	AlphaMin      = 0.05
	AlphaDecay    = 0.95
	decayAfter    = 10
)

// Model is one session's LinUCB state. It is derived, not persisted: the
// authoritative source of truth is the session's ordered interaction
// list (see Replay); callers may cache a Model keyed by session as a
// performance optimization, never as a source of truth.
type Model struct {
	Dim    int
	Alpha  float64
	Lambda float64

	a     *mat.SymDense
	b     *mat.VecDense
	theta *mat.VecDense
}

// New creates a fresh Model for dim features and the given initial
// alpha: A = I·(1+λ), b = 0, θ = 0.
func New(dim int, alpha float64) *Model {
	m := &Model{Dim: dim, Alpha: alpha, Lambda: DefaultLambda}
	m.reset()
	return m
}

func (m *Model) reset() {
	a := mat.NewSymDense(m.Dim, nil)
	for i := 0; i < m.Dim; i++ {
		a.SetSym(i, i, 1+m.Lambda)
	}
	m.a = a
	m.b = mat.NewVecDense(m.Dim, nil)
	m.theta = mat.NewVecDense(m.Dim, nil)
}

func toVec(x []float64) *mat.VecDense {
	return mat.NewVecDense(len(x), append([]float64(nil), x...))
}

// ExpectedReward returns θᵀx.
func (m *Model) ExpectedReward(x []float64) float64 {
	return mat.Dot(m.theta, toVec(x))
}

// Confidence returns α·√max(0, xᵀA⁻¹x).
func (m *Model) Confidence(x []float64) (float64, error) {
	xv := toVec(x)
	z, err := solve(m.a, xv, m.Lambda)
	if err != nil {
		return 0, err
	}
	quad := mat.Dot(xv, z)
	if quad < 0 {
		quad = 0
	}
	return m.Alpha * math.Sqrt(quad), nil
}

// UCB returns ExpectedReward(x) + Confidence(x).
func (m *Model) UCB(x []float64) (float64, error) {
	conf, err := m.Confidence(x)
	if err != nil {
		return 0, err
	}
	return m.ExpectedReward(x) + conf, nil
}

// Update folds an observed (x, r) into the model: A += xxᵀ; b += r·x;
// θ = A⁻¹b, using the retry ladder documented in solve.
func (m *Model) Update(x []float64, r float64) error {
	xv := toVec(x)
	var updated mat.SymDense
	updated.SymRankOne(m.a, 1, xv)
	m.a = &updated

	m.b.AddScaledVec(m.b, r, xv)

	theta, err := solve(m.a, m.b, m.Lambda)
	if err != nil {
		return err
	}
	m.theta = theta
	return nil
}

// Theta returns a copy of the current preference vector.
func (m *Model) Theta() []float64 {
	out := make([]float64, m.Dim)
	for i := 0; i < m.Dim; i++ {
		out[i] = m.theta.AtVec(i)
	}
	return out
}

// NormTheta returns ‖θ‖ (Euclidean norm), used for confidence tiering.
func (m *Model) NormTheta() float64 {
	return mat.Norm(m.theta, 2)
}

// DecayAlpha applies the adaptive-exploration schedule: after
// totalInteractions > 10, α ← max(α_min, α·decay), never exceeding
// α_max.
func (m *Model) DecayAlpha(totalInteractions int) {
	if totalInteractions <= decayAfter {
		return
	}
	m.Alpha *= AlphaDecay
	if m.Alpha < AlphaMin {
		m.Alpha = AlphaMin
	}
	if m.Alpha > AlphaMax {
		m.Alpha = AlphaMax
	}
}

// solve computes A⁻¹b via Cholesky (A is always symmetric PSD by
// construction). Per DESIGN.md's Open Question decision, the fallback
// ladder is a single step: retry once against A+λI, then fail with a
// model_singular error — no ×10 step.
func solve(a *mat.SymDense, b *mat.VecDense, lambda float64) (*mat.VecDense, error) {
	dim := b.Len()
	out := mat.NewVecDense(dim, nil)

	var chol mat.Cholesky
	if chol.Factorize(a) {
		if err := chol.SolveVecTo(out, b); err == nil {
			return out, nil
		}
	}

	var bumped mat.SymDense
	bumped.CloneFromSym(a)
	for i := 0; i < dim; i++ {
		bumped.SetSym(i, i, bumped.At(i, i)+lambda)
	}
	if chol.Factorize(&bumped) {
		if err := chol.SolveVecTo(out, b); err == nil {
			return out, nil
		}
	}

	return nil, apperr.New(apperr.KindModelSingular, "LinUCB design matrix is not invertible after regularized retry")
}
