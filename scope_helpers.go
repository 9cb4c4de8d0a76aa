package chainmap

const (
	// Recommended priorities for common layering patterns. Higher numbers win.
	ScopePrioritySystem = 100
	ScopePriorityTenant = 200
	ScopePriorityOrg    = 300
	ScopePriorityTeam   = 400
	ScopePriorityUser   = 500
)

// SystemTenantOrgTeamUser assembles the canonical five-layer stack (system →
// tenant → org → team → user) and returns a LayeredMap with the user layer as
// primary. Nil layers become empty layers.
func SystemTenantOrgTeamUser[K comparable, V any](system, tenant, org, team, user *Layer[K, V], opts ...Option) (*LayeredMap[K, V], error) {
	stack, err := NewStack(
		NewScopedLayer(NewScope("user", ScopePriorityUser, WithScopeLabel("User")), user),
		NewScopedLayer(NewScope("team", ScopePriorityTeam, WithScopeLabel("Team")), team),
		NewScopedLayer(NewScope("org", ScopePriorityOrg, WithScopeLabel("Organization")), org),
		NewScopedLayer(NewScope("tenant", ScopePriorityTenant, WithScopeLabel("Tenant")), tenant),
		NewScopedLayer(NewScope("system", ScopePrioritySystem, WithScopeLabel("System Defaults")), system),
	)
	if err != nil {
		return nil, err
	}
	return stack.Build(opts...), nil
}
