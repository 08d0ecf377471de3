// Package stock contiene las reglas puras del motor de stock: políticas de asignación
// de un delta sobre ubicaciones, fuente de verdad para la reconciliación y validaciones.
// No depende de la persistencia.
package stock

import (
	"errors"
	"sort"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Nombres de política aceptados en configuración y en las rutas.
const (
	PolicyLargestOutSmallestIn = "largest_out_smallest_in"
	PolicyLargestFirst         = "largest_first"
	PolicySmallestFirst        = "smallest_first"
	PolicyRoundRobin           = "round_robin"
)

// ErrNoLocations se devuelve al planificar sobre un producto sin ubicaciones.
var ErrNoLocations = errors.New("stock: no hay ubicaciones para asignar")

// Allocation es el cambio planificado sobre una ubicación.
type Allocation struct {
	Location *entity.StockLocation
	Delta    int64
}

// AllocationPolicy decide cómo se reparte un delta con signo entre las ubicaciones de un producto.
// Garantías para toda implementación:
//   - la suma de los Delta devueltos es exactamente delta;
//   - ninguna ubicación queda con cantidad negativa;
//   - el resultado es determinista para la misma entrada (desempate por clave y ID);
//   - un débito mayor que el total disponible devuelve INSUFFICIENT_STOCK sin plan.
type AllocationPolicy interface {
	Name() string
	Plan(locations []*entity.StockLocation, delta int64) ([]Allocation, error)
}

// ParsePolicy resuelve el nombre de una política. Vacío devuelve def.
func ParsePolicy(name string, def AllocationPolicy) (AllocationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return def, nil
	case PolicyLargestOutSmallestIn:
		return LargestOutSmallestIn{}, nil
	case PolicyLargestFirst:
		return LargestFirst{}, nil
	case PolicySmallestFirst:
		return SmallestFirst{}, nil
	case PolicyRoundRobin:
		return RoundRobin{}, nil
	}
	return nil, domain.ErrInvalidPolicy
}

// LargestOutSmallestIn es la política por defecto del reparto: los débitos drenan primero la
// ubicación más grande y los créditos completan la más pequeña.
type LargestOutSmallestIn struct{}

func (LargestOutSmallestIn) Name() string { return PolicyLargestOutSmallestIn }

func (LargestOutSmallestIn) Plan(locations []*entity.StockLocation, delta int64) ([]Allocation, error) {
	return greedyPlan(sortedBy(locations, delta < 0), delta)
}

// LargestFirst drena primero la ubicación con más unidades y abona los créditos completos
// a la más grande.
type LargestFirst struct{}

func (LargestFirst) Name() string { return PolicyLargestFirst }

func (LargestFirst) Plan(locations []*entity.StockLocation, delta int64) ([]Allocation, error) {
	return greedyPlan(sortedBy(locations, true), delta)
}

// SmallestFirst drena primero la ubicación con menos unidades y abona los créditos
// completos a la más pequeña.
type SmallestFirst struct{}

func (SmallestFirst) Name() string { return PolicySmallestFirst }

func (SmallestFirst) Plan(locations []*entity.StockLocation, delta int64) ([]Allocation, error) {
	return greedyPlan(sortedBy(locations, false), delta)
}

// RoundRobin reparte unidad a unidad recorriendo las ubicaciones en orden de clave
// (ciudad, agencia, ID). Los débitos saltan las ubicaciones vacías.
type RoundRobin struct{}

func (RoundRobin) Name() string { return PolicyRoundRobin }

func (RoundRobin) Plan(locations []*entity.StockLocation, delta int64) ([]Allocation, error) {
	if err := precheck(locations, delta); err != nil {
		return nil, err
	}
	ordered := sortedByKey(locations)
	moves := make([]int64, len(ordered))

	if delta > 0 {
		n := int64(len(ordered))
		q, r := delta/n, delta%n
		for i := range ordered {
			moves[i] = q
			if int64(i) < r {
				moves[i]++
			}
		}
		return collect(ordered, moves), nil
	}

	need := -delta
	avail := make([]int64, len(ordered))
	for i, l := range ordered {
		avail[i] = l.Quantity
	}
	for need > 0 {
		active := make([]int, 0, len(ordered))
		minAvail := int64(-1)
		for i, a := range avail {
			if a > 0 {
				active = append(active, i)
				if minAvail < 0 || a < minAvail {
					minAvail = a
				}
			}
		}
		k := int64(len(active))
		if need < k {
			// Última vuelta parcial: una unidad a cada una de las primeras `need` ubicaciones.
			for _, i := range active[:need] {
				avail[i]--
				moves[i]--
			}
			break
		}
		step := need / k
		if step > minAvail {
			step = minAvail
		}
		for _, i := range active {
			avail[i] -= step
			moves[i] -= step
		}
		need -= step * k
	}
	return collect(ordered, moves), nil
}

// greedyPlan recorre las ubicaciones en el orden dado: los débitos se consumen hasta agotar
// lo pedido; los créditos se abonan completos a la primera.
func greedyPlan(ordered []*entity.StockLocation, delta int64) ([]Allocation, error) {
	if err := precheck(ordered, delta); err != nil {
		return nil, err
	}
	if delta > 0 {
		return []Allocation{{Location: ordered[0], Delta: delta}}, nil
	}
	remaining := -delta
	plan := make([]Allocation, 0, len(ordered))
	for _, l := range ordered {
		if remaining == 0 {
			break
		}
		if l.Quantity <= 0 {
			continue
		}
		take := l.Quantity
		if take > remaining {
			take = remaining
		}
		plan = append(plan, Allocation{Location: l, Delta: -take})
		remaining -= take
	}
	return plan, nil
}

// precheck aplica las validaciones comunes a todas las políticas.
func precheck(locations []*entity.StockLocation, delta int64) error {
	if delta == 0 {
		return domain.ErrInvalidDelta
	}
	if len(locations) == 0 {
		return ErrNoLocations
	}
	total, ok := CheckedTotal(locations)
	if !ok {
		return domain.ErrInvalidDelta
	}
	if delta < 0 && total < -delta {
		return domain.InsufficientStock(total, -delta)
	}
	if !CanApply(total, delta) {
		return domain.ErrInvalidDelta
	}
	return nil
}

func collect(ordered []*entity.StockLocation, moves []int64) []Allocation {
	plan := make([]Allocation, 0, len(ordered))
	for i, l := range ordered {
		if moves[i] != 0 {
			plan = append(plan, Allocation{Location: l, Delta: moves[i]})
		}
	}
	return plan
}

func sortedBy(locations []*entity.StockLocation, desc bool) []*entity.StockLocation {
	out := append([]*entity.StockLocation(nil), locations...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Quantity != b.Quantity {
			if desc {
				return a.Quantity > b.Quantity
			}
			return a.Quantity < b.Quantity
		}
		return keyLess(a, b)
	})
	return out
}

func sortedByKey(locations []*entity.StockLocation) []*entity.StockLocation {
	out := append([]*entity.StockLocation(nil), locations...)
	sort.SliceStable(out, func(i, j int) bool { return keyLess(out[i], out[j]) })
	return out
}

func keyLess(a, b *entity.StockLocation) bool {
	if a.CityKey != b.CityKey {
		return a.CityKey < b.CityKey
	}
	if a.AgencyKey != b.AgencyKey {
		return a.AgencyKey < b.AgencyKey
	}
	return a.ID < b.ID
}
