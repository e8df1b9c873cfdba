package eventbus

// Типы событий жизненного цикла чанков
const (
	EventChunkSpawned   = "chunk.spawned"
	EventChunkDespawned = "chunk.despawned"
)

// SourceChunkManager источник событий менеджера чанков
const SourceChunkManager = "chunk-manager"

// ChunkEvent полезная нагрузка событий чанков
type ChunkEvent struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Tick       uint64  `json:"tick"`
	FromCache  bool    `json:"from_cache,omitempty"`  // Чанк взят из дискового кеша
	BorderSize int     `json:"border_size,omitempty"` // Количество тайлов переходного слоя
	DistanceSq float64 `json:"distance_sq,omitempty"` // Квадрат расстояния до ближайшего наблюдателя при выгрузке
}

// NewChunkEnvelope упаковывает событие чанка в конверт
func NewChunkEnvelope(eventType string, ev ChunkEvent) (*Envelope, error) {
	return NewEnvelope(eventType, SourceChunkManager, ev)
}
