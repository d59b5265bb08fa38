package schemas

// Embedded copies of the documents under schemas/. The pipeline runs from
// arbitrary working directories (and inside sandboxed project checkouts)
// where ResolveSchemaPath can come up empty, so inputs are validated against
// these constants. The schemas/ package tests keep both copies in sync.

// InteractionsSchema validates scripted interaction files: a flat list of
// pre-audit interactions plus named states audited separately.
const InteractionsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Scripted page interactions",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "interactions": {
      "type": "array",
      "items": {"$ref": "#/definitions/interaction"}
    },
    "states": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "interactions": {
            "type": "array",
            "items": {"$ref": "#/definitions/interaction"}
          }
        }
      }
    }
  },
  "definitions": {
    "interaction": {
      "type": "object",
      "required": ["type"],
      "additionalProperties": false,
      "properties": {
        "type": {"type": "string", "enum": ["click", "scroll", "type", "wait"]},
        "selector": {"type": "string"},
        "text": {"type": "string"},
        "wait_after": {"type": "number", "minimum": 0}
      }
    }
  }
}`

// AxeReportSchema validates the raw payload collected from the audit engine
// before it is parsed. The engine either returns a results object with a
// violations array or an error object, so both shapes are accepted.
const AxeReportSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "axe-core audit report",
  "type": "object",
  "anyOf": [
    {"required": ["violations"]},
    {"required": ["error"]}
  ],
  "properties": {
    "error": {"type": "string"},
    "url": {"type": "string"},
    "timestamp": {"type": "string"},
    "passes": {"type": "array"},
    "incomplete": {"type": "array"},
    "inapplicable": {"type": "array"},
    "violations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "nodes"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "impact": {"type": ["string", "null"]},
          "description": {"type": "string"},
          "help": {"type": "string"},
          "helpUrl": {"type": "string"},
          "tags": {"type": "array", "items": {"type": "string"}},
          "nodes": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "target": {"type": "array"},
                "html": {"type": "string"},
                "failureSummary": {"type": "string"},
                "any": {"type": "array"},
                "all": {"type": "array"}
              }
            }
          }
        }
      }
    }
  }
}`

// RunSummarySchema validates the run summary JSON written at the end of a
// remediation run.
const RunSummarySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Remediation run summary",
  "type": "object",
  "required": ["run_id", "stats", "components", "changes_map"],
  "properties": {
    "run_id": {"type": "string", "minLength": 1},
    "started_at": {"type": "string"},
    "finished_at": {"type": "string"},
    "build_ok": {"type": "boolean"},
    "stats": {
      "type": "object",
      "required": ["discovered", "updated", "errors"],
      "properties": {
        "discovered": {"type": "integer", "minimum": 0},
        "updated": {"type": "integer", "minimum": 0},
        "errors": {"type": "integer", "minimum": 0},
        "unmapped": {"type": "integer", "minimum": 0}
      }
    },
    "components": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["path", "status", "violations"],
        "properties": {
          "path": {"type": "string", "minLength": 1},
          "status": {
            "type": "string",
            "enum": ["discovered", "mapped", "synthesized", "validated", "applied", "rejected", "unchanged", "error"]
          },
          "reason": {"type": "string"},
          "violations": {"type": "integer", "minimum": 0}
        }
      }
    },
    "changes_map": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["component", "changes"],
        "properties": {
          "component": {"type": "string", "minLength": 1},
          "changes": {
            "type": "object",
            "additionalProperties": {
              "type": "object",
              "required": ["path", "original", "corrected", "kind"],
              "properties": {
                "path": {"type": "string"},
                "original": {"type": "string"},
                "corrected": {"type": "string"},
                "kind": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`
