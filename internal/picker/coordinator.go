package picker

import (
	"fmt"

	"github.com/alfredjeanlab/kadr/internal/model"
)

// dependency narrows child's listing by parent's resolved id.
type dependency struct {
	child string
	key   string
}

// Depend makes child's listing filtered by parent's resolved id under
// filterKey. Whenever parent's resolved id changes (including being cleared),
// child's accumulator is reset and, if child is open, page 1 is refetched.
// The child's selection is left as it is.
func (f *Form) Depend(child, parent, filterKey string) error {
	var err error
	doErr := f.do(func() { err = f.depend(child, parent, filterKey) })
	if doErr != nil {
		return doErr
	}
	return err
}

func (f *Form) depend(child, parent, key string) error {
	if key == "" {
		return fmt.Errorf("depend %s on %s: filter key is required", child, parent)
	}
	if _, ok := f.fields[child]; !ok {
		return fmt.Errorf("depend: %w: %s", ErrUnknownField, child)
	}
	p, ok := f.fields[parent]
	if !ok {
		return fmt.Errorf("depend: %w: %s", ErrUnknownField, parent)
	}
	if f.reaches(child, parent) {
		return fmt.Errorf("depend %s on %s: dependency cycle", child, parent)
	}
	for _, d := range f.deps[parent] {
		if d.child == child && d.key == key {
			return nil
		}
	}
	f.deps[parent] = append(f.deps[parent], dependency{child: child, key: key})
	f.enqueue(filterChanged{field: child, key: key, value: p.sel.ID().String()})
	return nil
}

// reaches reports whether to is from, or depends on from through any chain.
func (f *Form) reaches(from, to string) bool {
	if from == to {
		return true
	}
	for _, d := range f.deps[from] {
		if f.reaches(d.child, to) {
			return true
		}
	}
	return false
}

// selectionChanged notifies dependents when fd's resolved id changed.
func (f *Form) selectionChanged(fd *field, prev model.Selection) {
	if prev.ID() == fd.sel.ID() {
		return
	}
	value := fd.sel.ID().String()
	for _, d := range f.deps[fd.cfg.Name] {
		f.enqueue(filterChanged{field: d.child, key: d.key, value: value})
	}
}

func (f *Form) onFilterChanged(fd *field, key, value string) {
	if fd.depFilters[key] == value {
		return
	}
	if value == "" {
		delete(fd.depFilters, key)
	} else {
		fd.depFilters[key] = value
	}
	f.logger.Debug("picker: dependency filter changed", "field", fd.cfg.Name, "key", key, "value", value)
	f.reset(fd)
}
