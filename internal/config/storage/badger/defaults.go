package badger

// defaultOptions 返回默认BadgerDB配置
func defaultOptions() *BadgerOptions {
	return &BadgerOptions{
		Path:         "./data/badger",
		InMemory:     false,
		SyncWrites:   true,
		MemTableSize: 64 << 20,
	}
}
