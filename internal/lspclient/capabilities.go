package lspclient

import "go.lsp.dev/protocol"

// clientCapabilities builds the capabilities payload sent with
// initialize. It advertises hierarchical document symbols,
// linkSupport on definition, prepareSupport on rename,
// markdown+plaintext hover, and call/type hierarchy, and declares the
// create/rename/delete resource operations.
func clientCapabilities() protocol.ClientCapabilities {
	trueVal := true
	symbolKindValueSet := make([]protocol.SymbolKind, 0, 26)
	for k := protocol.SymbolKindFile; k <= protocol.SymbolKindTypeParameter; k++ {
		symbolKindValueSet = append(symbolKindValueSet, k)
	}

	return protocol.ClientCapabilities{
		Workspace: &protocol.WorkspaceClientCapabilities{
			ApplyEdit: true,
			WorkspaceEdit: &protocol.WorkspaceClientCapabilitiesWorkspaceEdit{
				DocumentChanges:    true,
				ResourceOperations: []string{"create", "rename", "delete"},
			},
			Symbol: &protocol.WorkspaceClientCapabilitiesSymbol{
				SymbolKind: &protocol.SymbolKindCapabilities{ValueSet: symbolKindValueSet},
			},
			FileOperations: &protocol.WorkspaceClientCapabilitiesFileOperations{
				WillRename: true,
				DidRename:  true,
			},
		},
		TextDocument: &protocol.TextDocumentClientCapabilities{
			Synchronization: &protocol.TextDocumentSyncClientCapabilities{
				DidSave: true,
			},
			Hover: &protocol.HoverTextDocumentClientCapabilities{
				ContentFormat: []protocol.MarkupKind{protocol.Markdown, protocol.PlainText},
			},
			Definition: &protocol.DefinitionTextDocumentClientCapabilities{
				LinkSupport: true,
			},
			TypeDefinition: &protocol.TypeDefinitionTextDocumentClientCapabilities{
				LinkSupport: true,
			},
			Implementation: &protocol.ImplementationTextDocumentClientCapabilities{
				LinkSupport: true,
			},
			DocumentSymbol: &protocol.DocumentSymbolClientCapabilities{
				HierarchicalDocumentSymbolSupport: true,
				SymbolKind:                        &protocol.SymbolKindCapabilities{ValueSet: symbolKindValueSet},
			},
			Rename: &protocol.RenameClientCapabilities{
				PrepareSupport: true,
			},
			PublishDiagnostics: &protocol.PublishDiagnosticsClientCapabilities{
				RelatedInformation: true,
			},
			CallHierarchy: &protocol.CallHierarchyClientCapabilities{},
			TypeHierarchy: &protocol.TypeHierarchyClientCapabilities{},
		},
		Window: &protocol.WindowClientCapabilities{
			WorkDoneProgress: true,
		},
		Experimental: map[string]interface{}{
			"serverStatusNotification": trueVal,
		},
	}
}
