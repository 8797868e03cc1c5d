package badger

// Database Key Namespace
// ======================
//
// Records are stored whole, one key per handle:
//
// Data Type      Prefix   Key Format             Value Type
// ===========================================================
// Handle Record  "h:"     h:<prefix>/<suffix>    record (XDR)
//
// Because keys sort bytewise, every handle of one prefix sits in the range
// "h:<prefix>/" .. "h:<prefix>/\xff", so prefix listings are iterator scans
// with opts.Prefix set.

const prefixRecord = "h:"

// keyRecord generates the key for a handle record.
func keyRecord(name string) []byte {
	return []byte(prefixRecord + name)
}

// keyRecordPrefix generates the scan prefix for all handles under a handle prefix.
// An empty handle prefix scans every record.
func keyRecordPrefix(handlePrefix string) []byte {
	if handlePrefix == "" {
		return []byte(prefixRecord)
	}
	return []byte(prefixRecord + handlePrefix + "/")
}

// handleFromKey strips the namespace from a record key.
func handleFromKey(key []byte) string {
	return string(key[len(prefixRecord):])
}
