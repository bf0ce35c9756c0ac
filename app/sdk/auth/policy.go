package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/jcpaschoal/gymhub/business/types/actions"
	"github.com/jcpaschoal/gymhub/business/types/resource"
	"github.com/jcpaschoal/gymhub/business/types/role"
)

const casbinModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

type rule struct {
	role role.Role
	res  resource.Resource
	acts []actions.Action
}

// Staff scan and sell, gym admins inherit that and manage the catalog and
// members, platform admins only manage the registry.
var policy = []rule{
	{role.Staff, resource.Pass, []actions.Action{actions.Create, actions.Get, actions.Scan, actions.Consume}},
	{role.Staff, resource.Member, []actions.Action{actions.Create, actions.Get}},
	{role.Staff, resource.Offering, []actions.Action{actions.Get}},
	{role.Admin, resource.Pass, []actions.Action{actions.Revoke}},
	{role.Admin, resource.Usage, []actions.Action{actions.Get}},
	{role.Admin, resource.Member, []actions.Action{actions.Update, actions.Delete}},
	{role.Admin, resource.Offering, []actions.Action{actions.Create, actions.Update}},
	{role.Platform, resource.Tenant, []actions.Action{actions.Get, actions.Update, actions.Delete}},
}

func newEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(casbinModel)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	var rules [][]string
	for _, r := range policy {
		for _, act := range r.acts {
			rules = append(rules, []string{r.role.String(), r.res.String(), act.String()})
		}
	}

	if _, err := e.AddPolicies(rules); err != nil {
		return nil, fmt.Errorf("add policies: %w", err)
	}

	if _, err := e.AddGroupingPolicy(role.Admin.String(), role.Staff.String()); err != nil {
		return nil, fmt.Errorf("add grouping: %w", err)
	}

	return e, nil
}
