// internal/rating/glicko2.go
package rating

import "math"

const (
	// GlickoScale is the multiplier used for converting between Elo and Glicko2's mu.
	GlickoScale = 173.7178
	// DefaultElo is the baseline rating.
	DefaultElo = 1500.0
	// DefaultRD is the baseline rating deviation on the Elo scale.
	DefaultRD = 350.0
	// DefaultSigma is the starting volatility.
	DefaultSigma = 0.06
	// Tau is the constraint on volatility changes.
	Tau = 0.5
	// Epsilon is the convergence tolerance of the volatility search.
	Epsilon = 0.000001
)

// Rating is a Glicko-2 rating in the internal scale.
type Rating struct {
	Mu    float64
	Phi   float64
	Sigma float64
}

// New converts an Elo-scale rating and deviation into Glicko-2 space.
func New(elo, rd, sigma float64) Rating {
	return Rating{
		Mu:    (elo - DefaultElo) / GlickoScale,
		Phi:   rd / GlickoScale,
		Sigma: sigma,
	}
}

// Default is an unrated side.
func Default() Rating { return New(DefaultElo, DefaultRD, DefaultSigma) }

// Elo returns the rating on the 1500-based scale.
func (r Rating) Elo() float64 { return r.Mu*GlickoScale + DefaultElo }

// RD returns the rating deviation on the Elo scale.
func (r Rating) RD() float64 { return r.Phi * GlickoScale }

// Expected is the probability that r beats opp.
func (r Rating) Expected(opp Rating) float64 {
	return expect(r.Mu, opp.Mu, opp.Phi)
}

// Update applies one rating period containing a single result against opp.
// score is 1 for a win, 0.5 for a draw and 0 for a loss.
func Update(r, opp Rating, score float64) Rating {
	gOpp := g(opp.Phi)
	e := expect(r.Mu, opp.Mu, opp.Phi)

	v := 1.0 / (gOpp * gOpp * e * (1 - e))
	delta := v * gOpp * (score - e)
	sigma := volatility(r, v, delta)

	phiStar := math.Sqrt(r.Phi*r.Phi + sigma*sigma)
	phi := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	return Rating{
		Mu:    r.Mu + phi*phi*gOpp*(score-e),
		Phi:   phi,
		Sigma: sigma,
	}
}

// volatility finds the new sigma with the Illinois variant of regula falsi.
func volatility(r Rating, v, delta float64) float64 {
	a := math.Log(r.Sigma * r.Sigma)
	fn := func(x float64) float64 { return f(x, r.Phi, v, delta, a) }

	A := a
	var B float64
	if delta*delta > r.Phi*r.Phi+v {
		B = math.Log(delta*delta - r.Phi*r.Phi - v)
	} else {
		k := 1.0
		for fn(a-k*Tau) < 0 {
			k++
		}
		B = a - k*Tau
	}

	fA, fB := fn(A), fn(B)
	for i := 0; i < 100 && math.Abs(B-A) > Epsilon; i++ {
		C := A + (A-B)*fA/(fB-fA)
		fC := fn(C)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}
	return math.Exp(A / 2)
}

// g is the G(phi) factor from Glicko2, applying the standard formula 1/sqrt(1+3phi^2/pi^2).
func g(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/math.Pi/math.Pi)
}

func expect(mu, mu2, phi2 float64) float64 {
	return 1.0 / (1.0 + math.Exp(-g(phi2)*(mu-mu2)))
}

// f is the Glicko2 volatility root-finding function.
func f(x, phi, v, delta, a float64) float64 {
	ex := math.Exp(x)
	num := ex * (delta*delta - phi*phi - v - ex)
	den := 2.0 * (phi*phi + v + ex) * (phi*phi + v + ex)
	return (num / den) - ((x - a) / (Tau * Tau))
}
