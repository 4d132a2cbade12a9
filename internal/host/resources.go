package host

// StaticResources resolves drawable names from a fixed table.
type StaticResources struct {
	icons   map[string]int
	appIcon int
}

func NewStaticResources(icons map[string]int, appIcon int) *StaticResources {
	cp := make(map[string]int, len(icons))
	for k, v := range icons {
		cp[k] = v
	}
	return &StaticResources{icons: cp, appIcon: appIcon}
}

// Lookup treats id 0 as "no such resource", matching the platform convention.
func (s *StaticResources) Lookup(name string) (int, bool) {
	id, ok := s.icons[name]
	return id, ok && id != 0
}

func (s *StaticResources) AppIcon() int { return s.appIcon }

var _ Resources = (*StaticResources)(nil)
