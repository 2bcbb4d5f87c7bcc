package mcpserver

// NodeIDFormat describes how facet node ids are built, so LLM consumers can
// construct and read them without calling list_facets first.
const NodeIDFormat = `# Facet Node ID Format

The facet tree groups notes by frontmatter property. Every node has a
stable string id.

## Shapes

| Node          | Id                                   | Example                      |
|---------------|--------------------------------------|------------------------------|
| Root          | ` + "`root`" + `                               | ` + "`root`" + `                       |
| Property key  | ` + "`key:<key>`" + `                          | ` + "`key:status`" + `                 |
| Key + value   | ` + "`key:<key>=<value path>`" + `             | ` + "`key:area=work/project`" + `      |

## Rules

1. Keys and values are case-folded, trimmed, and value paths drop empty
   segments: ` + "`Work / Project/`" + ` becomes ` + "`work/project`" + `.
2. Inside a key or value, ` + "`%`" + ` is written ` + "`%25`" + ` and ` + "`=`" + ` is written ` + "`%3D`" + `.
   The first raw ` + "`=`" + ` separates key from value.
3. Values are hierarchical on ` + "`/`" + `. A value node counts its own notes; with
   ` + "`include_descendants`" + ` it also counts notes whose value starts with
   ` + "`<value path>/`" + `.
4. ` + "`true`" + `, ` + "`false`" + ` and empty values do not create value nodes; such notes
   sit directly on the key.
5. A selection whose value disappeared resolves to its key; a selection
   whose key disappeared resolves to ` + "`root`" + `.

## Legacy selections

Older clients stored ` + "`{\"key\": \"Status\", \"value\": \"Draft\"}`" + `. The
resolve_selection tool accepts that shape as well as a plain id.
`
