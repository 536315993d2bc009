package ledger

import "context"

// Convenience recorders for the subsystems that report here. Each maps to
// the dedicated partition for its action type.

// RecordModuleAction records a module lifecycle action (create, scan,
// deploy, delete) in the modules partition.
func (c *Custodian) RecordModuleAction(ctx context.Context, action, moduleName, details, userID, smartID string, metadata map[string]any) (Entry, error) {
	return c.RecordAction(ctx, Action{
		Type: ActionTypeModule, Action: action, Target: moduleName,
		Details: details, UserID: userID, SmartID: smartID, Metadata: metadata,
	})
}

// RecordNodeAction records a node/agent action in the nodes partition.
func (c *Custodian) RecordNodeAction(ctx context.Context, action, nodeName, details, userID, smartID string, metadata map[string]any) (Entry, error) {
	return c.RecordAction(ctx, Action{
		Type: ActionTypeNode, Action: action, Target: nodeName,
		Details: details, UserID: userID, SmartID: smartID, Metadata: metadata,
	})
}

// RecordEquipmentAction records an equipment registry action.
func (c *Custodian) RecordEquipmentAction(ctx context.Context, action, equipmentName, details, userID, smartID string, metadata map[string]any) (Entry, error) {
	return c.RecordAction(ctx, Action{
		Type: ActionTypeEquipment, Action: action, Target: equipmentName,
		Details: details, UserID: userID, SmartID: smartID, Metadata: metadata,
	})
}

// RecordDomainAction records a domain configuration action.
func (c *Custodian) RecordDomainAction(ctx context.Context, action, domainName, details, userID, smartID string, metadata map[string]any) (Entry, error) {
	return c.RecordAction(ctx, Action{
		Type: ActionTypeDomain, Action: action, Target: domainName,
		Details: details, UserID: userID, SmartID: smartID, Metadata: metadata,
	})
}

// RecordUserAction records a user management action.
func (c *Custodian) RecordUserAction(ctx context.Context, action, targetUser, details, userID string, metadata map[string]any) (Entry, error) {
	return c.RecordAction(ctx, Action{
		Type: ActionTypeUser, Action: action, Target: targetUser,
		Details: details, UserID: userID, Metadata: metadata,
	})
}

// RecordSystemAction records a system-level action; userID defaults to
// "system" for automated callers.
func (c *Custodian) RecordSystemAction(ctx context.Context, action, component, details, userID string, metadata map[string]any) (Entry, error) {
	if userID == "" {
		userID = "system"
	}
	return c.RecordAction(ctx, Action{
		Type: ActionTypeSystem, Action: action, Target: component,
		Details: details, UserID: userID, Metadata: metadata,
	})
}
