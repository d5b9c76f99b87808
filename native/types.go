package native

// Type is the tag naming the class of the current object of the
// command processor.
type Type string

const (
	TypeNone                 Type = ""
	TypeTable                Type = "table"
	TypeTable3D              Type = "table3d"
	TypeHist                 Type = "hist"
	TypeHist2D               Type = "hist_2d"
	TypeTensor               Type = "tensor"
	TypeTensorInt            Type = "tensor<int>"
	TypeTensorSizeT          Type = "tensor<size_t>"
	TypeTensorGrid           Type = "tensor_grid"
	TypeProbDensMdimAMR      Type = "prob_dens_mdim_amr"
	TypeProbDensMdimGaussian Type = "prob_dens_mdim_gaussian"
	TypeContourLines         Type = "vector<contour_line>"
	TypeVecVecDouble         Type = "vec_vec_double"
	TypeVecVecString         Type = "vec_vec_string"
	TypeDoubleArr            Type = "double[]"
	TypeIntArr               Type = "int[]"
	TypeSizeTArr             Type = "size_t[]"
	TypeStringArr            Type = "string[]"
	TypeDouble               Type = "double"
	TypeInt                  Type = "int"
	TypeSizeT                Type = "size_t"
	TypeString               Type = "string"
	TypeUniformGrid          Type = "uniform_grid<double>"
)

// Types lists every known tag except TypeNone.
var Types = []Type{
	TypeTable, TypeTable3D, TypeHist, TypeHist2D,
	TypeTensor, TypeTensorInt, TypeTensorSizeT, TypeTensorGrid,
	TypeProbDensMdimAMR, TypeProbDensMdimGaussian, TypeContourLines,
	TypeVecVecDouble, TypeVecVecString,
	TypeDoubleArr, TypeIntArr, TypeSizeTArr, TypeStringArr,
	TypeDouble, TypeInt, TypeSizeT, TypeString, TypeUniformGrid,
}

// ParseType returns the tag for s and whether it is known.
func ParseType(s string) (Type, bool) {
	if s == "" {
		return TypeNone, true
	}
	for _, t := range Types {
		if string(t) == s {
			return t, true
		}
	}
	return Type(s), false
}

func (t Type) String() string {
	if t == TypeNone {
		return "<none>"
	}
	return string(t)
}
