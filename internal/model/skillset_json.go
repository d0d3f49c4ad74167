package model

import "encoding/json"

// MarshalJSON encodes the set as a sorted array.
func (s SkillSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON decodes an array of skill names.
func (s *SkillSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NewSkillSet(raw...)
	return nil
}
