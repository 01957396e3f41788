// Package host is the in-process command dispatch framework that the console
// manages.
//
// # Overview
//
// The framework owns the live set of command handlers. Each handler belongs to
// a plugin, carries zero or more filters and a free-text description, and is
// identified by a globally unique full name:
//
//	pluginA.cmdX
//	cmdmgr.start_webui_command
//
// Only handlers present in the live set are dispatchable. The registry package
// moves handlers out of (and back into) the live set to disable or enable
// them.
//
// # Filters
//
// Filters form a closed set of variants. The ones that trigger on text
// commands implement CommandNamer:
//
//   - CommandFilter: base name, aliases, and parent group paths
//   - CommandGroupFilter: a precomputed list of complete command paths
//
// Other filters (PermissionFilter) only describe dispatch conditions and
// contribute no command names.
//
// # Usage
//
//	fw := host.New(logger)
//	fw.RegisterPlugin(host.Plugin{Name: "weather", ModulePath: "plugins.weather"},
//	    &host.Handler{
//	        FullName:   "plugins.weather.forecast",
//	        ModulePath: "plugins.weather",
//	        Filters:    []host.Filter{&host.CommandFilter{Name: "forecast"}},
//	    })
//	matched := fw.Dispatch("forecast tomorrow")
package host
