// ABOUTME: Registers plugins and handlers declared in the config manifest
// ABOUTME: Translates handler declarations into command, group, and permission filters

package host

import "github.com/2389/coven-cmdconsole/internal/config"

// RegisterManifest registers every plugin in plugins, in order.
func (f *Framework) RegisterManifest(plugins []config.PluginConfig) {
	for _, pc := range plugins {
		handlers := make([]*Handler, 0, len(pc.Handlers))
		for _, hc := range pc.Handlers {
			handlers = append(handlers, handlerFromConfig(pc.Module, hc))
		}
		f.RegisterPlugin(Plugin{
			Name:       pc.Name,
			ModulePath: pc.Module,
			Author:     pc.Author,
			Version:    pc.Version,
		}, handlers...)
	}
}

func handlerFromConfig(module string, hc config.HandlerConfig) *Handler {
	h := &Handler{
		FullName:    hc.FullName,
		ModulePath:  module,
		Description: hc.Description,
	}
	if len(hc.Group) > 0 {
		h.Filters = append(h.Filters, &CommandGroupFilter{Name: hc.Group[0], CompleteNames: hc.Group})
	}
	if hc.Command != "" {
		h.Filters = append(h.Filters, &CommandFilter{
			Name:        hc.Command,
			Aliases:     hc.Aliases,
			ParentNames: hc.Parents,
		})
	}
	if hc.Permission != "" {
		h.Filters = append(h.Filters, &PermissionFilter{Type: PermissionType(hc.Permission)})
	}
	return h
}
