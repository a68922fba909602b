package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Task() TaskRepository

	// Close releases the underlying connections
	Close() error
}
