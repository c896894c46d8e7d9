package builtins

import (
	"math"
)

// mathFunctions registers the libm family. One-argument functions take
// the input, two- and three-argument ones take jq arguments and ignore it.
func mathFunctions() []*FunctionDef {
	var defs []*FunctionDef
	for _, f := range unaryMath {
		defs = append(defs, &FunctionDef{Name: f.name, Arity: 1, Impl: mathDD(f.fn)})
	}
	for _, f := range pairMath {
		defs = append(defs, &FunctionDef{Name: f.name, Arity: 1, Impl: mathDA(f.fn)})
	}
	for _, f := range binaryMath {
		defs = append(defs, &FunctionDef{Name: f.name, Arity: 3, Impl: mathDDD(f.fn)})
	}
	defs = append(defs, &FunctionDef{Name: "fma", Arity: 4, Impl: fnFMA})
	return defs
}

var unaryMath = []struct {
	name string
	fn   func(float64) float64
}{
	{"acos", math.Acos},
	{"acosh", math.Acosh},
	{"asin", math.Asin},
	{"asinh", math.Asinh},
	{"atan", math.Atan},
	{"atanh", math.Atanh},
	{"cbrt", math.Cbrt},
	{"cos", math.Cos},
	{"cosh", math.Cosh},
	{"exp", math.Exp},
	{"exp2", math.Exp2},
	{"floor", math.Floor},
	{"j0", math.J0},
	{"j1", math.J1},
	{"log", math.Log},
	{"log10", math.Log10},
	{"log2", math.Log2},
	{"sin", math.Sin},
	{"sinh", math.Sinh},
	{"sqrt", math.Sqrt},
	{"tan", math.Tan},
	{"tanh", math.Tanh},
	{"tgamma", math.Gamma},
	{"y0", math.Y0},
	{"y1", math.Y1},
	{"ceil", math.Ceil},
	{"erf", math.Erf},
	{"erfc", math.Erfc},
	{"exp10", func(x float64) float64 { return math.Pow(10, x) }},
	{"expm1", math.Expm1},
	{"fabs", math.Abs},
	{"gamma", lgamma},
	{"lgamma", lgamma},
	{"log1p", math.Log1p},
	{"logb", math.Logb},
	{"nearbyint", math.RoundToEven},
	{"rint", math.RoundToEven},
	{"round", math.Round},
	{"significand", significand},
	{"trunc", math.Trunc},
}

var pairMath = []struct {
	name string
	fn   func(float64) []any
}{
	{"frexp", func(x float64) []any {
		frac, exp := math.Frexp(x)
		return []any{frac, float64(exp)}
	}},
	{"modf", func(x float64) []any {
		i, frac := math.Modf(x)
		return []any{frac, i}
	}},
	{"lgamma_r", func(x float64) []any {
		v, sign := math.Lgamma(x)
		return []any{v, float64(sign)}
	}},
}

var binaryMath = []struct {
	name string
	fn   func(float64, float64) float64
}{
	{"pow", math.Pow},
	{"atan2", math.Atan2},
	{"fmod", math.Mod},
	{"hypot", math.Hypot},
	{"fmin", math.Min},
	{"fmax", math.Max},
	{"fdim", math.Dim},
	{"copysign", math.Copysign},
	{"drem", math.Remainder},
	{"nextafter", math.Nextafter},
	{"nexttoward", math.Nextafter},
	{"ldexp", func(x, e float64) float64 { return math.Ldexp(x, int(e)) }},
	{"scalb", func(x, e float64) float64 { return x * math.Exp2(e) }},
	{"scalbln", func(x, e float64) float64 { return math.Ldexp(x, int(e)) }},
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

// significand returns the mantissa scaled into [1, 2).
func significand(x float64) float64 {
	if x == 0 || math.IsInf(x, 0) || math.IsNaN(x) {
		return x
	}
	frac, _ := math.Frexp(x)
	return frac * 2
}

func mathDD(fn func(float64) float64) FunctionImpl {
	return func(_ Env, args []any) (any, error) {
		x, err := numberArg(args[0])
		if err != nil {
			return nil, err
		}
		return fn(x), nil
	}
}

func mathDA(fn func(float64) []any) FunctionImpl {
	return func(_ Env, args []any) (any, error) {
		x, err := numberArg(args[0])
		if err != nil {
			return nil, err
		}
		return fn(x), nil
	}
}

func mathDDD(fn func(float64, float64) float64) FunctionImpl {
	return func(_ Env, args []any) (any, error) {
		x, err := numberArg(args[1])
		if err != nil {
			return nil, err
		}
		y, err := numberArg(args[2])
		if err != nil {
			return nil, err
		}
		return fn(x, y), nil
	}
}

func fnFMA(_ Env, args []any) (any, error) {
	var xs [3]float64
	for i := range xs {
		x, err := numberArg(args[i+1])
		if err != nil {
			return nil, err
		}
		xs[i] = x
	}
	return math.FMA(xs[0], xs[1], xs[2]), nil
}
