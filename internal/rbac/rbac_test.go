package rbac

import "testing"

func TestPermissionMatrix(t *testing.T) {
	cases := []struct {
		level  Level
		action Action
		want   bool
	}{
		{LevelView, ActionRead, true},
		{LevelView, ActionWrite, false},
		{LevelView, ActionManage, false},
		{LevelUpdate, ActionRead, true},
		{LevelUpdate, ActionWrite, true},
		{LevelUpdate, ActionManage, false},
		{LevelOwner, ActionRead, true},
		{LevelOwner, ActionWrite, true},
		{LevelOwner, ActionManage, true},
		{LevelNone, ActionRead, false},
		{LevelUpdate, Action("archive"), false},
		{LevelOwner, Action("archive"), true},
	}

	for _, tc := range cases {
		if got := Can(tc.level, tc.action); got != tc.want {
			t.Fatalf("Can(%s,%s) = %v, want %v", tc.level, tc.action, got, tc.want)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		owner int64
		user  int64
		grant GrantLevel
		want  Level
	}{
		{name: "owner without grant", owner: 1, user: 1, want: LevelOwner},
		{name: "owner wins over stale grant", owner: 1, user: 1, grant: GrantView, want: LevelOwner},
		{name: "update grant", owner: 1, user: 2, grant: GrantUpdate, want: LevelUpdate},
		{name: "view grant", owner: 1, user: 2, grant: GrantView, want: LevelView},
		{name: "no grant", owner: 1, user: 2, want: LevelNone},
		{name: "anonymous", owner: 0, user: 0, want: LevelNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.owner, tc.user, tc.grant); got != tc.want {
				t.Fatalf("Resolve() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestParseGrantLevelRejectsOwner(t *testing.T) {
	if _, err := ParseGrantLevel("owner"); err == nil {
		t.Fatal("expected owner to be rejected as a grant level")
	}
	level, err := ParseGrantLevel("update")
	if err != nil {
		t.Fatalf("ParseGrantLevel(update) error = %v", err)
	}
	if level.Level() != LevelUpdate {
		t.Fatalf("expected update level, got %s", level.Level())
	}
}

func TestLevelText(t *testing.T) {
	text, err := LevelOwner.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(text) != "owner" {
		t.Fatalf("expected owner, got %s", text)
	}
	if LevelNone.String() != "none" {
		t.Fatalf("expected none, got %s", LevelNone)
	}
}
