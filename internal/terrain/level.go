package terrain

import "fmt"

// TerrainLevel дискретная высота рельефа. Меньшие значения ниже: 0 обычно вода.
type TerrainLevel uint32

func (l TerrainLevel) String() string {
	return fmt.Sprintf("L%d", uint32(l))
}
