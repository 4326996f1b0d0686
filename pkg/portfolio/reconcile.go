package portfolio

// SingleSignal is what a request says about a single-valued field
type SingleSignal int

const (
	// SignalOmitted leaves the field untouched
	SignalOmitted SingleSignal = iota
	// SignalUpload replaces the field with the first newly stored asset
	SignalUpload
	// SignalClear empties the field
	SignalClear
)

func (s SingleSignal) String() string {
	switch s {
	case SignalUpload:
		return "upload"
	case SignalClear:
		return "clear"
	default:
		return "omitted"
	}
}

// ReconcileList computes the new value of a multi-valued field.
//
// A nil retained keeps every existing reference. A non-nil retained, even
// empty, keeps only the existing references whose locator it names, in the
// order it names them. Newly stored references are appended and the result
// is deduplicated by locator, first occurrence wins. removed holds every
// existing reference whose locator is absent from final.
func ReconcileList(existing []AssetRef, retained *[]string, newlyStored []AssetRef) (final, removed []AssetRef) {
	var kept []AssetRef
	if retained == nil {
		kept = existing
	} else {
		byLocator := make(map[string]AssetRef, len(existing))
		for _, ref := range existing {
			if _, ok := byLocator[ref.Locator]; !ok {
				byLocator[ref.Locator] = ref
			}
		}
		for _, locator := range *retained {
			if ref, ok := byLocator[locator]; ok {
				kept = append(kept, ref)
			}
		}
	}

	final = make([]AssetRef, 0, len(kept)+len(newlyStored))
	seen := make(map[string]struct{}, len(kept)+len(newlyStored))
	for _, group := range [][]AssetRef{kept, newlyStored} {
		for _, ref := range group {
			if ref.IsZero() {
				continue
			}
			if _, dup := seen[ref.Locator]; dup {
				continue
			}
			seen[ref.Locator] = struct{}{}
			final = append(final, ref)
		}
	}

	dropped := make(map[string]struct{})
	for _, ref := range existing {
		if _, live := seen[ref.Locator]; live {
			continue
		}
		if _, done := dropped[ref.Locator]; done {
			continue
		}
		dropped[ref.Locator] = struct{}{}
		removed = append(removed, ref)
	}
	return final, removed
}

// ReconcileSingle computes the new value of a single-valued field.
// An upload signal with nothing stored behaves like an omitted field.
func ReconcileSingle(existing *AssetRef, signal SingleSignal, newlyStored []AssetRef) (final *AssetRef, removed []AssetRef) {
	hasExisting := existing != nil && !existing.IsZero()

	switch signal {
	case SignalUpload:
		if len(newlyStored) == 0 {
			return existing, nil
		}
		next := newlyStored[0]
		if hasExisting && existing.Locator != next.Locator {
			removed = []AssetRef{*existing}
		}
		return &next, removed
	case SignalClear:
		if hasExisting {
			removed = []AssetRef{*existing}
		}
		return nil, removed
	default:
		return existing, nil
	}
}
