package population

import (
	"fmt"
	"strings"
)

// Age：个体年龄类别；UnknownAge 仅用于表示解析失败，不能用于抽样
type Age int

const (
	UnknownAge Age = iota
	AnyAge
	Adult
	Child
)

func (a Age) String() string {
	switch a {
	case AnyAge:
		return "either"
	case Adult:
		return "adult"
	case Child:
		return "child"
	}
	return "unknown"
}

func ParseAge(s string) (Age, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "either", "any":
		return AnyAge, nil
	case "adult":
		return Adult, nil
	case "child":
		return Child, nil
	}
	return UnknownAge, fmt.Errorf("unknown age %q", s)
}

// Sex：个体性别类别；UnknownSex 同上
type Sex int

const (
	UnknownSex Sex = iota
	AnySex
	Male
	Female
)

func (s Sex) String() string {
	switch s {
	case AnySex:
		return "either"
	case Male:
		return "male"
	case Female:
		return "female"
	}
	return "unknown"
}

func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "either", "any":
		return AnySex, nil
	case "male":
		return Male, nil
	case "female":
		return Female, nil
	}
	return UnknownSex, fmt.Errorf("unknown sex %q", s)
}

// MatchAge / MatchSex：过滤条件为 Any 时全部匹配
func MatchAge(filter, a Age) bool { return filter == AnyAge || filter == a }

func MatchSex(filter, s Sex) bool { return filter == AnySex || filter == s }

func (a Age) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Age) UnmarshalText(b []byte) error {
	if string(b) == "unknown" {
		*a = UnknownAge
		return nil
	}
	v, err := ParseAge(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (s Sex) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Sex) UnmarshalText(b []byte) error {
	if string(b) == "unknown" {
		*s = UnknownSex
		return nil
	}
	v, err := ParseSex(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
