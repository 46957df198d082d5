package distribution

// StorageInfo represents cloud storage quota information
type StorageInfo struct {
	TotalBytes     int64
	UsedBytes      int64
	AvailableBytes int64
}

// HasSpaceFor returns true if there's enough space for the given bytes
func (s StorageInfo) HasSpaceFor(bytes int64) bool {
	return s.AvailableBytes >= bytes
}

// Shortfall returns how many bytes must be freed before bytes fit
func (s StorageInfo) Shortfall(bytes int64) int64 {
	if s.HasSpaceFor(bytes) {
		return 0
	}
	return bytes - s.AvailableBytes
}
