/*
Extracted from HocusFocus plugin by George Hilios.
Original Copyright © 2021 George Hilios <ghilios+NINA@googlemail.com>
Licensed under Mozilla Public License 2.0.
Ported to Go.
*/

package galprof

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// curveModel is a 1-D model y = f(p, x) with an analytic parameter gradient.
type curveModel interface {
	value(p []float64, x float64) float64
	gradient(p []float64, x float64, grad []float64)
}

// levenbergMarquardt minimizes the squared residuals of model against
// (inputs, outputs), keeping every parameter inside [lower, upper].
func levenbergMarquardt(
	model curveModel,
	inputs, outputs,
	x0, lower, upper, scale []float64,
	tolerance float64, maxIter int,
) []float64 {
	n := len(x0)
	m := len(inputs)

	x := make([]float64, n)
	copy(x, x0)
	for j := 0; j < n; j++ {
		x[j] = clampFloat64(x[j], lower[j], upper[j])
	}

	fi := make([]float64, m)
	jac := mat.NewDense(m, n, nil)
	grad := make([]float64, n)

	computeResidualsAndJacobian(model, inputs, outputs, x, fi, jac, grad)
	cost := sumOfSquares(fi)

	lambda := 1e-3
	nu := 2.0

	var JtJ mat.Dense
	var Jtf mat.VecDense
	A := mat.NewDense(n, n, nil)
	rhs := mat.NewVecDense(n, nil)
	var dx mat.VecDense
	xNew := make([]float64, n)
	fiNew := make([]float64, m)

	for iter := 0; iter < maxIter; iter++ {
		JtJ.Mul(jac.T(), jac)
		Jtf.MulVec(jac.T(), mat.NewVecDense(m, fi))

		if mat.Norm(&Jtf, 2) < tolerance*cost {
			break
		}

		for tries := 0; tries < 20; tries++ {
			A.Copy(&JtJ)
			for i := 0; i < n; i++ {
				A.Set(i, i, A.At(i, i)+lambda*(scale[i]*scale[i]))
				rhs.SetVec(i, -Jtf.AtVec(i))
			}

			if err := dx.SolveVec(A, rhs); err != nil || hasNaN(dx.RawVector().Data) {
				lambda *= nu
				continue
			}

			for j := 0; j < n; j++ {
				xNew[j] = clampFloat64(x[j]+dx.AtVec(j), lower[j], upper[j])
			}

			for k := 0; k < m; k++ {
				fiNew[k] = model.value(xNew, inputs[k]) - outputs[k]
			}
			costNew := sumOfSquares(fiNew)

			if costNew < cost {
				improvement := (cost - costNew) / cost
				copy(x, xNew)
				cost = costNew
				lambda = math.Max(lambda/3.0, 1e-15)
				nu = 2.0

				computeResidualsAndJacobian(model, inputs, outputs, x, fi, jac, grad)

				if improvement < tolerance {
					return x
				}
				break
			}
			lambda *= nu
			nu *= 2.0
			if lambda > 1e16 {
				return x
			}
		}
	}
	return x
}

func computeResidualsAndJacobian(model curveModel, inputs, outputs, x, fi []float64, jac *mat.Dense, grad []float64) {
	for k := range inputs {
		fi[k] = model.value(x, inputs[k]) - outputs[k]
		model.gradient(x, inputs[k], grad)
		jac.SetRow(k, grad)
	}
}

// computeRSquared is the coefficient of determination of the fit p.
func computeRSquared(model curveModel, inputs, outputs, p []float64) float64 {
	yBar := stat.Mean(outputs, nil)

	tss, rss := 0.0, 0.0
	for i := range inputs {
		res := model.value(p, inputs[i]) - outputs[i]
		disp := outputs[i] - yBar
		rss += res * res
		tss += disp * disp
	}
	if tss > 0 {
		return 1.0 - rss/tss
	}
	return 0.0
}

func sumOfSquares(fi []float64) float64 { return floats.Dot(fi, fi) }

func hasNaN(v []float64) bool {
	return floats.HasNaN(v) || math.IsInf(floats.Max(v), 1) || math.IsInf(floats.Min(v), -1)
}
