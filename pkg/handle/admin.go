package handle

// Default owner used when no handle owner is configured.
const (
	DefaultOwnerIndex  = 200
	DefaultOwnerPrefix = "0.NA/"
)

// NewEntry creates an ordinary entry. HS_ADMIN entries must be built with
// BuildAdminEntry; asking for one here is an illegal operation.
func NewEntry(typ string, data Data, index int, ttl *int) (Entry, error) {
	if typ == TypeAdmin {
		return Entry{}, NewIllegalOperationError("creating HS_ADMIN entry", "", "HS_ADMIN entries must be created by the admin entry builder")
	}
	e := Entry{Index: index, Type: typ, Data: data}
	if ttl != nil {
		t := *ttl
		e.TTL = &t
	}
	return e, nil
}

// BuildAdminEntry constructs the HS_ADMIN entry for handle.
//
// With an empty owner the admin handle defaults to "0.NA/<prefix>" with
// index 200. Otherwise owner is parsed as "index:prefix/suffix". The
// permission string is stored as given.
func BuildAdminEntry(owner, permissions string, index int, handle string) (Entry, error) {
	value := AdminValue{Permissions: permissions}
	if owner == "" {
		value.Index = DefaultOwnerIndex
		value.Handle = DefaultOwnerPrefix + Prefix(handle)
	} else {
		idx, name, err := ParseOwner(owner)
		if err != nil {
			return Entry{}, err
		}
		value.Index = idx
		value.Handle = name
	}
	return Entry{Index: index, Type: TypeAdmin, Data: AdminData(value)}, nil
}
