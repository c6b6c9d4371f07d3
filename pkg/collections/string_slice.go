package collections

import "strings"

// StringSlice is a repeatable flag.  Each occurrence may itself be a comma
// separated list: `-ext .nr -ext .noir,.nrx`.
type StringSlice []string

func (i *StringSlice) String() string {
	if i == nil {
		return ""
	}
	return strings.Join(*i, ",")
}

// Set implements the flag.Value interface.
func (i *StringSlice) Set(value string) error {
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			*i = append(*i, v)
		}
	}
	return nil
}
