package application

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

var errMilpInfeasible = errors.New("no feasible integer solution")

const (
	milpIntTol  = 1e-6
	milpGapTol  = 1e-9
	milpNodeCap = 20000
)

type rowOp int

const (
	opLE rowOp = iota
	opEQ
)

type milpRow struct {
	coeffs map[int]float64
	op     rowOp
	rhs    float64
}

// milp is a small 0/1 mixed-integer program: minimize objective subject to
// linear rows, with selected variables binary and the rest continuous and
// non-negative. Solved by branch-and-bound over the simplex relaxation.
type milp struct {
	objective []float64
	binary    []bool
	rows      []milpRow
}

func newMILP(numVars int) *milp {
	return &milp{
		objective: make([]float64, numVars),
		binary:    make([]bool, numVars),
	}
}

func (m *milp) addRow(coeffs map[int]float64, op rowOp, rhs float64) {
	m.rows = append(m.rows, milpRow{coeffs: coeffs, op: op, rhs: rhs})
}

type bbNode struct {
	fixed map[int]float64
}

func (n bbNode) branch(varIdx int, value float64) bbNode {
	fixed := make(map[int]float64, len(n.fixed)+1)
	for k, v := range n.fixed {
		fixed[k] = v
	}
	fixed[varIdx] = value
	return bbNode{fixed: fixed}
}

// solve runs depth-first branch-and-bound. It returns the best integral
// solution, or errMilpInfeasible when none exists within the node budget.
func (m *milp) solve() ([]float64, float64, error) {
	bestObj := math.Inf(1)
	var best []float64

	stack := []bbNode{{fixed: map[int]float64{}}}
	nodes := 0

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		nodes++
		if nodes > milpNodeCap {
			break
		}

		x, obj, err := m.relaxation(node.fixed)
		if err != nil {
			if errors.Is(err, lp.ErrInfeasible) {
				continue
			}
			return nil, 0, fmt.Errorf("solve relaxation: %w", err)
		}
		if obj >= bestObj-milpGapTol {
			continue
		}

		branchVar := m.mostFractional(x)
		if branchVar < 0 {
			bestObj = obj
			best = x
			continue
		}

		// Explore the rounded branch first.
		if x[branchVar] >= 0.5 {
			stack = append(stack, node.branch(branchVar, 0), node.branch(branchVar, 1))
		} else {
			stack = append(stack, node.branch(branchVar, 1), node.branch(branchVar, 0))
		}
	}

	if best == nil {
		return nil, 0, errMilpInfeasible
	}
	return best, bestObj, nil
}

// mostFractional returns the binary variable farthest from integrality, or -1
// when the solution is integral.
func (m *milp) mostFractional(x []float64) int {
	branchVar := -1
	worst := milpIntTol
	for i, isBinary := range m.binary {
		if !isBinary {
			continue
		}
		frac := math.Abs(x[i] - math.Round(x[i]))
		if frac > worst {
			worst = frac
			branchVar = i
		}
	}
	return branchVar
}

// relaxation solves the LP relaxation with the given binaries fixed. Fixed
// variables are substituted out; inequality rows gain slack variables and
// free binaries gain an upper-bound row, producing the standard form
// min c'x s.t. Ax = b, x >= 0 expected by the simplex solver.
func (m *milp) relaxation(fixed map[int]float64) ([]float64, float64, error) {
	numVars := len(m.objective)

	freeIdx := make([]int, 0, numVars)
	colOf := make(map[int]int, numVars)
	for i := range m.objective {
		if _, ok := fixed[i]; ok {
			continue
		}
		colOf[i] = len(freeIdx)
		freeIdx = append(freeIdx, i)
	}

	numRows := len(m.rows)
	numSlack := 0
	for _, row := range m.rows {
		if row.op == opLE {
			numSlack++
		}
	}
	numBoundRows := 0
	for _, i := range freeIdx {
		if m.binary[i] {
			numBoundRows++
		}
	}

	totalRows := numRows + numBoundRows
	totalCols := len(freeIdx) + numSlack + numBoundRows

	a := mat.NewDense(totalRows, totalCols, nil)
	b := make([]float64, totalRows)
	c := make([]float64, totalCols)

	for _, i := range freeIdx {
		c[colOf[i]] = m.objective[i]
	}

	slackCol := len(freeIdx)
	for r, row := range m.rows {
		rhs := row.rhs
		for i, coeff := range row.coeffs {
			if value, ok := fixed[i]; ok {
				rhs -= coeff * value
				continue
			}
			a.Set(r, colOf[i], coeff)
		}
		b[r] = rhs
		if row.op == opLE {
			a.Set(r, slackCol, 1)
			slackCol++
		}
	}

	boundRow := numRows
	for _, i := range freeIdx {
		if !m.binary[i] {
			continue
		}
		a.Set(boundRow, colOf[i], 1)
		a.Set(boundRow, slackCol, 1)
		b[boundRow] = 1
		boundRow++
		slackCol++
	}

	var fixedObj float64
	for i, value := range fixed {
		fixedObj += m.objective[i] * value
	}

	obj, xFree, err := lp.Simplex(c, a, b, 0, nil)
	if err != nil {
		return nil, 0, err
	}

	x := make([]float64, numVars)
	for i, value := range fixed {
		x[i] = value
	}
	for _, i := range freeIdx {
		x[i] = xFree[colOf[i]]
	}
	return x, obj + fixedObj, nil
}
