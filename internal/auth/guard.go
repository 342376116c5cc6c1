package auth

// Guard gates an action on a single permission or on a list of permissions.
// Permission takes precedence over Permissions. A zero Guard allows everything.
type Guard struct {
	Permission  string
	Permissions []string
	RequireAll  bool
}

// Allows evaluates the guard for u.
func (g Guard) Allows(u *User) bool {
	switch {
	case g.Permission != "":
		return HasPermission(u, g.Permission)
	case len(g.Permissions) > 0 && g.RequireAll:
		return HasAll(u, g.Permissions...)
	case len(g.Permissions) > 0:
		return HasAny(u, g.Permissions...)
	default:
		return true
	}
}

// NavItem is a sidebar entry.
type NavItem struct {
	Name string `json:"name"`
	Href string `json:"href"`

	visible func(*User) bool
}

var navigation = []NavItem{
	{Name: "Dashboard", Href: "/dashboard"},
	{Name: "Products", Href: "/products", visible: CanViewProducts},
	{Name: "Sales Orders", Href: "/sales", visible: CanViewSalesOrders},
	{Name: "Payments", Href: "/payments", visible: CanViewPayments},
	{Name: "Employees", Href: "/employees/invite", visible: CanInviteEmployee},
}

// Navigation returns the entries u may see, in display order.
func Navigation(u *User) []NavItem {
	out := make([]NavItem, 0, len(navigation))
	for _, item := range navigation {
		if item.visible != nil && !item.visible(u) {
			continue
		}
		out = append(out, NavItem{Name: item.Name, Href: item.Href})
	}
	return out
}
