// Copyright 2026 The playerlog Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package player

import (
	"fmt"
	"strings"
)

// Skill identifies one progression counter.  The numeric value is the
// code stored on disk and must never be renumbered.
type Skill uint16

const (
	Mining      Skill = 0
	Woodcutting Skill = 1
	Excavation  Skill = 2
	Acrobatics  Skill = 3
	Swords      Skill = 4
	Archery     Skill = 5
	Axes        Skill = 6
	Unarmed     Skill = 7
	Herbalism   Skill = 8
	Smelting    Skill = 9
	Repair      Skill = 10
	Salvage     Skill = 11
)

var skillNames = map[Skill]string{
	Mining:      "MINING",
	Woodcutting: "WOODCUTTING",
	Excavation:  "EXCAVATION",
	Acrobatics:  "ACROBATICS",
	Swords:      "SWORDS",
	Archery:     "ARCHERY",
	Axes:        "AXES",
	Unarmed:     "UNARMED",
	Herbalism:   "HERBALISM",
	Smelting:    "SMELTING",
	Repair:      "REPAIR",
	Salvage:     "SALVAGE",
}

// Skills lists every known skill in on-disk code order.
func Skills() []Skill {
	skills := make([]Skill, 0, len(skillNames))
	for s := Mining; s <= Salvage; s++ {
		skills = append(skills, s)
	}
	return skills
}

// SkillFromCode maps an on-disk code to a Skill; ok is false for codes this
// build doesn't know about.
func SkillFromCode(code uint16) (s Skill, ok bool) {
	s = Skill(code)
	_, ok = skillNames[s]
	return s, ok
}

// ParseSkill parses a skill name case-insensitively.
func ParseSkill(name string) (Skill, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for s, n := range skillNames {
		if n == upper {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown skill %q", name)
}

func (s Skill) Valid() bool {
	_, ok := skillNames[s]
	return ok
}

func (s Skill) String() string {
	if n, ok := skillNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Skill(%d)", uint16(s))
}
