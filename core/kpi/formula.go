package kpi

// FormulaKind selects how a KPI value is computed.
type FormulaKind int

const (
	// FormulaGeneric reads the KPI's own point values.
	FormulaGeneric FormulaKind = iota
	FormulaWaste
	FormulaEcoDis
	FormulaMeals
	FormulaParticipation
	FormulaRevenue
)

func (k FormulaKind) String() string {
	switch k {
	case FormulaWaste:
		return "waste"
	case FormulaEcoDis:
		return "eco-dis"
	case FormulaMeals:
		return "meals"
	case FormulaParticipation:
		return "participation"
	case FormulaRevenue:
		return "revenue"
	default:
		return "generic"
	}
}

// Formula is resolved once from the KPI name when definitions are loaded.
// Meal is only set for FormulaParticipation.
type Formula struct {
	Kind FormulaKind
	Meal MealType
}

// MetricDerived reports whether the formula reads school metrics (or schools) rather than point values.
// Metric-derived KPIs measure 0 on empty data; generic ones have no value.
func (f Formula) MetricDerived() bool {
	return f.Kind != FormulaGeneric
}

var formulasByName = map[string]Formula{
	"Waste":     {Kind: FormulaWaste},
	"Eco Dis":   {Kind: FormulaEcoDis},
	"Meals":     {Kind: FormulaMeals},
	"Breakfast": {Kind: FormulaParticipation, Meal: Breakfast},
	"Lunch":     {Kind: FormulaParticipation, Meal: Lunch},
	"Snack":     {Kind: FormulaParticipation, Meal: Snack},
	"Supper":    {Kind: FormulaParticipation, Meal: Supper},
	"Revenue":   {Kind: FormulaRevenue},
}

// ResolveFormula maps a KPI name to its formula; unknown names are generic.
func ResolveFormula(name string) Formula {
	if f, ok := formulasByName[name]; ok {
		return f
	}
	return Formula{Kind: FormulaGeneric}
}

// ResolveFormulas sets the Formula of every KPI in place.
func ResolveFormulas(kpis []KPI) {
	for i := range kpis {
		kpis[i].Formula = ResolveFormula(kpis[i].Name)
	}
}

// Program constants.
const (
	WasteCostPerPortion = 2.50
	AttendanceFactor    = 0.93
)

// unitPrices are the reimbursement rates of a meal type per tier.
type unitPrices struct {
	free, reduced, paid float64
}

var mealPrices = map[MealType]unitPrices{
	Breakfast: {free: 2.50, reduced: 2.30, paid: 0.75},
	Lunch:     {free: 3.75, reduced: 3.35, paid: 0.50},
	Snack:     {free: 1.00, reduced: 0.50, paid: 0.25},
	Supper:    {free: 1.00, reduced: 0.50, paid: 0.25},
}

var mealTypes = []MealType{Breakfast, Lunch, Snack, Supper}

func (p unitPrices) revenue(tc TierCounts) float64 {
	return float64(tc.Free)*p.free + float64(tc.Reduced)*p.reduced + float64(tc.Paid)*p.paid
}
