package world

import (
	"math/rand"

	"github.com/annel0/blockverse/internal/util"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// BiomeType представляет тип биома
type BiomeType int

const (
	BiomePlains BiomeType = iota
	BiomeDesert
	BiomeForest
	BiomeMountains
	BiomeWater
)

// Пороговые значения шума высоты
const (
	ShallowWaterMax = 0.30 // Ниже - дно водоёма
	MountainStart   = 0.75 // Выше - горы
)

// TerrainGenerator генерирует ландшафт по карте высот из шума Перлина
type TerrainGenerator struct {
	Seed          int64
	NoiseScale    float64 // Масштаб основного шума (высота)
	BiomeScale    float64 // Масштаб шума биомов
	BaseHeight    int     // Высота при нулевом шуме
	Amplitude     int     // Разброс высот
	SeaLevel      int     // Уровень воды
	ForestDensity float64 // Шанс дерева на колонку в лесу

	height *util.Noise
	biome  *util.Noise
}

// NewTerrainGenerator создаёт генератор ландшафта
func NewTerrainGenerator(seed int64) *TerrainGenerator {
	return &TerrainGenerator{
		Seed:          seed,
		NoiseScale:    0.02,
		BiomeScale:    0.005,
		BaseHeight:    0,
		Amplitude:     48,
		SeaLevel:      14,
		ForestDensity: 0.02,
		height:        util.NewNoise(seed),
		biome:         util.NewNoise(seed + 42),
	}
}

// SurfaceHeight возвращает мировую высоту поверхности в колонке (x, z)
func (g *TerrainGenerator) SurfaceHeight(x, z int) int {
	h := g.height.Noise2D(float64(x)*g.NoiseScale, float64(z)*g.NoiseScale)
	return g.BaseHeight + int(h*float64(g.Amplitude))
}

// Biome определяет биом колонки
func (g *TerrainGenerator) Biome(x, z int) BiomeType {
	h := g.height.Noise2D(float64(x)*g.NoiseScale, float64(z)*g.NoiseScale)
	b := g.biome.Noise2D(float64(x)*g.BiomeScale, float64(z)*g.BiomeScale)
	return biomeFor(h, b)
}

func biomeFor(height, biomeValue float64) BiomeType {
	switch {
	case height < ShallowWaterMax:
		return BiomeWater
	case height > MountainStart:
		return BiomeMountains
	case biomeValue < 0.35:
		return BiomeDesert
	case biomeValue > 0.65:
		return BiomeForest
	default:
		return BiomePlains
	}
}

// GenerateChunk заполняет чанк. Результат зависит только от сида и координат.
func (g *TerrainGenerator) GenerateChunk(pos vec.Vec3, c *Chunk) {
	// Локальный ГСЧ на чанк для детерминированности
	chunkSeed := g.Seed + int64(pos.X)*31 + int64(pos.Y)*17 + int64(pos.Z)*13
	rng := rand.New(rand.NewSource(chunkSeed))

	origin := vec.FromChunkLocal(pos, vec.Vec3{})

	for lz := 0; lz < vec.ChunkSize; lz++ {
		for lx := 0; lx < vec.ChunkSize; lx++ {
			wx, wz := origin.X+lx, origin.Z+lz
			surface := g.SurfaceHeight(wx, wz)
			biome := g.Biome(wx, wz)

			for ly := 0; ly < vec.ChunkSize; ly++ {
				wy := origin.Y + ly
				if b := g.blockAt(wy, surface, biome); !b.IsAir() {
					c.Set(lx, ly, lz, b)
				}
			}

			if biome == BiomeForest || biome == BiomePlains {
				density := g.ForestDensity
				if biome == BiomeForest {
					density *= 5
				}
				if rng.Float64() < density {
					g.placeTree(c, origin, lx, lz, surface, rng)
				}
			}
		}
	}
}

// blockAt выбирает блок по высоте в колонке
func (g *TerrainGenerator) blockAt(y, surface int, biome BiomeType) block.BlockData {
	switch {
	case y > surface:
		if y <= g.SeaLevel {
			return block.Of(block.WaterBlockID)
		}
		return block.Air
	case y < surface-3:
		return block.Of(block.StoneBlockID)
	}

	switch biome {
	case BiomeDesert, BiomeWater:
		return block.Of(block.SandBlockID)
	case BiomeMountains:
		return block.Of(block.StoneBlockID)
	}
	if y == surface && surface >= g.SeaLevel {
		return block.Of(block.GrassBlockID)
	}
	return block.Of(block.DirtBlockID)
}

// placeTree ставит ствол и крону, если они целиком помещаются в чанк
func (g *TerrainGenerator) placeTree(c *Chunk, origin vec.Vec3, lx, lz, surface int, rng *rand.Rand) {
	if surface < g.SeaLevel {
		return
	}
	if lx < 2 || lx > vec.ChunkSize-3 || lz < 2 || lz > vec.ChunkSize-3 {
		return
	}

	trunk := 3 + rng.Intn(3) // Высота ствола 3-5 блоков
	base := surface + 1 - origin.Y
	top := base + trunk
	if base < 0 || top+1 >= vec.ChunkSize {
		return
	}

	for y := base; y < top; y++ {
		c.Set(lx, y, lz, block.Of(block.DirtBlockID))
	}
	for dy := -1; dy <= 1; dy++ {
		for dz := -2; dz <= 2; dz++ {
			for dx := -2; dx <= 2; dx++ {
				if dx == 0 && dz == 0 && dy < 0 {
					continue
				}
				if abs(dx)+abs(dz) > 3 {
					continue
				}
				c.Set(lx+dx, top+dy, lz+dz, block.Of(block.LeavesBlockID))
			}
		}
	}
}

// FlatGenerator заполняет всё ниже Height одним блоком, верхний слой - Top
type FlatGenerator struct {
	Height int
	Fill   block.BlockData
	Top    block.BlockData
}

// GenerateChunk заполняет слои плоского мира
func (g FlatGenerator) GenerateChunk(pos vec.Vec3, c *Chunk) {
	originY := pos.Y * vec.ChunkSize
	for ly := 0; ly < vec.ChunkSize; ly++ {
		wy := originY + ly
		if wy >= g.Height {
			return
		}
		b := g.Fill
		if wy == g.Height-1 && !g.Top.IsAir() {
			b = g.Top
		}
		for lz := 0; lz < vec.ChunkSize; lz++ {
			for lx := 0; lx < vec.ChunkSize; lx++ {
				c.Set(lx, ly, lz, b)
			}
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
