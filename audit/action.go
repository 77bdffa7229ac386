/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package audit

import "github.com/tomoncle/restcore/types"

// Action is the kind of change recorded by an audit entry.
type Action int

const (
	ActionStore Action = iota + 1
	ActionUpdate
	ActionDelete
)

var _ types.BaseEnum = ActionStore

var actionNames = map[Action][2]string{
	ActionStore:  {"store", "resource created"},
	ActionUpdate: {"update", "resource updated"},
	ActionDelete: {"delete", "resource deleted"},
}

func (a Action) IsValid() bool {
	_, ok := actionNames[a]
	return ok
}

func (a Action) Number() int {
	if !a.IsValid() {
		return types.IllegalValue
	}
	return int(a)
}

func (a Action) Name() string {
	if n, ok := actionNames[a]; ok {
		return n[0]
	}
	return types.IllegalName
}

func (a Action) Desc() string {
	if n, ok := actionNames[a]; ok {
		return n[1]
	}
	return types.IllegalDesc
}

func (a Action) String() string { return a.Name() }

var actions = []Action{ActionStore, ActionUpdate, ActionDelete}

// ParseAction resolves an action by name.
func ParseAction(name string) (Action, bool) {
	return types.EnumByName(name, actions...)
}

// ActionOf resolves an action by its stored number.
func ActionOf(n int) (Action, bool) {
	return types.EnumByNumber(n, actions...)
}
