package remotestore

import (
	"encoding/json"
	"fmt"
	"strings"
)

// flexibleID accepts both `"7"` and `7` on the wire. The backend has served
// numeric ids for legacy rows and string ids for new ones; comparison in the
// engine is always on the string form.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		*f = ""
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*f = flexibleID(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("lead id must be a string or number: %w", err)
	}
	*f = flexibleID(n.String())
	return nil
}

func (f flexibleID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

func (f flexibleID) String() string {
	return string(f)
}
