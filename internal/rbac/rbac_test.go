package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "owner read", role: RoleOwner, action: ActionRead, allow: true},
		{name: "owner write", role: RoleOwner, action: ActionWrite, allow: true},
		{name: "owner delete", role: RoleOwner, action: ActionDelete, allow: true},
		{name: "collaborator read", role: RoleCollaborator, action: ActionRead, allow: true},
		{name: "collaborator write", role: RoleCollaborator, action: ActionWrite, allow: false},
		{name: "collaborator copy", role: RoleCollaborator, action: ActionCopy, allow: false},
		{name: "stranger read", role: RoleStranger, action: ActionRead, allow: false},
		{name: "unknown role", role: Role("admin"), action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestRoleFor(t *testing.T) {
	if got := RoleFor("r1", "r1", false); got != RoleOwner {
		t.Fatalf("owner: got %q", got)
	}
	if got := RoleFor("r2", "r1", true); got != RoleCollaborator {
		t.Fatalf("collaborator: got %q", got)
	}
	if got := RoleFor("r2", "r1", false); got != RoleStranger {
		t.Fatalf("stranger: got %q", got)
	}
	if got := RoleFor("", "", false); got != RoleStranger {
		t.Fatalf("anonymous: got %q", got)
	}
}
