package config

import "sort"

// Logical UI roles the workflow dereferences.
const (
	SelUsernameInput         = "username_input"
	SelPasswordInput         = "password_input"
	SelLoginButton           = "login_button"
	SelDashboardLoaded       = "dashboard_loaded_indicator"
	SelModulesDropdown       = "modules_dropdown_icon"
	SelAttendanceLink        = "attendance_link"
	SelGroupSummary          = "total_group_attendance_summary"
	SelSubjectAttendanceInfo = "subject_attendance_info"

	SelViewSubjectsButton = "view_subjects_button"
	SelSubjectsModal      = "subjects_modal"
	SelSubjectList        = "subject_list"
	SelFragmentPreloader  = "fragment_preloader"
)

// RequiredSelectors must be present in the selector file.
var RequiredSelectors = []string{
	SelUsernameInput,
	SelPasswordInput,
	SelLoginButton,
	SelDashboardLoaded,
	SelModulesDropdown,
	SelAttendanceLink,
	SelGroupSummary,
	SelSubjectAttendanceInfo,
}

// optionalSelectors fill in portal elements the selector file usually omits.
var optionalSelectors = map[string]string{
	SelViewSubjectsButton: ".group-card button.btn",
	SelSubjectsModal:      "#group-subjects-modal",
	SelSubjectList:        "#group-subject-list",
	SelFragmentPreloader:  "img[src*='Ring-Preloader']",
}

// Selectors maps a logical UI role to a CSS locator. Read-only after loading.
type Selectors struct {
	path  string
	items map[string]string
}

// NewSelectors builds a selector map from already-decoded values.
func NewSelectors(items map[string]string) Selectors {
	merged := make(map[string]string, len(items)+len(optionalSelectors))
	for k, v := range optionalSelectors {
		merged[k] = v
	}
	for k, v := range items {
		if v != "" {
			merged[k] = v
		}
	}
	return Selectors{items: merged}
}

// LoadSelectors reads the selector file. Missing keys are not reported here;
// see Require and Get.
func LoadSelectors(path string) (Selectors, error) {
	m, err := Load(path)
	if err != nil {
		return Selectors{}, err
	}
	s := NewSelectors(m)
	s.path = path
	return s, nil
}

// Get returns the locator for key, or a *ConfigurationError naming the key.
func (s Selectors) Get(key string) (string, error) {
	v, ok := s.items[key]
	if !ok || v == "" {
		return "", &ConfigurationError{Path: s.path, Key: key}
	}
	return v, nil
}

// Require checks that every key is present, reporting the first missing one
// in sorted order so the error is stable.
func (s Selectors) Require(keys ...string) error {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	for _, k := range sorted {
		if _, err := s.Get(k); err != nil {
			return err
		}
	}
	return nil
}

// Len is the number of defined roles, defaults included.
func (s Selectors) Len() int { return len(s.items) }
