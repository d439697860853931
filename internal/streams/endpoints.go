package streams

// KnownEndpoints lists every GET type exposed by the Inventio smartapi.
// Only some of them have a stream definition.
var KnownEndpoints = []string{
	"AccountScheduleNames-GET",
	"AccountScheduleResult-GET",
	"AccountingPeriod-GET",
	"BankAccount-GET",
	"CL-GET",
	"CashReceiptJournalList-GET",
	"ColumnLayoutNames-GET",
	"CompanyInformation-GET",
	"ConfigTemplateHeader-GET",
	"Currency-GET",
	"Customer-GET",
	"CustomerLedgerEntry-GET",
	"CustomerNumberList-GET",
	"CustomerPostingGroup-GET",
	"DeferralTemplates-GET",
	"DimensionMandatory-GET",
	"DimensionSetEntry-GET",
	"DimensionValue-GET",
	"GLAccount-GET",
	"GLBudgetEntry-GET",
	"GLEntry-GET",
	"GenBusinessPostingGroup-GET",
	"GenProductPostingGroup-GET",
	"GeneralJournal-GET",
	"GeneralJournalBatchName-GET",
	"GeneralJournalTemplateName-GET",
	"GeneralLedgerSetup-GET",
	"InventoryPostingGroup-GET",
	"Item-GET",
	"ItemCrossReference-GET",
	"ItemLedgerEntry-GET",
	"ItemPicture-GET",
	"ItemStock-GET",
	"ItemUnitOfMeasure-GET",
	"Job-GET",
	"JobTask-GET",
	"PaymentMethod-GET",
	"PaymentTerms-GET",
	"PurchOrder-GET",
	"PurchOrderLine-GET",
	"PurchasePrice-GET",
	"Resource-GET",
	"ResourceCost-GET",
	"ResourcePrice-GET",
	"SLD-GET",
	"SMARTexpense-GET",
	"SMARTexpenseApproval-GET",
	"SalesCrMem-GET",
	"SalesCrMemPDF-GET",
	"SalesInvoiceNumberList-GET",
	"SalesInvoiceOIOUBL-GET",
	"SalesInvoicePDF-GET",
	"SalesInvoices-GET",
	"SalesOrder-GET",
	"SalesOrderLine-GET",
	"SalesPrice-GET",
	"ShipmentMethod-GET",
	"UnitsOfMeasure-GET",
	"Variant-GET",
	"Vat-GET",
	"Vendor-GET",
	"VendorBankAcc-GET",
	"VendorLedgerEntry-GET",
	"VendorPostingGroup-GET",
	"Worktype-GET",
}

// IsKnownEndpoint reports whether the Inventio API exposes the endpoint,
// whether or not the tap has a stream for it.
func IsKnownEndpoint(name string) bool {
	key := NormaliseName(name)
	if key == "" {
		return false
	}
	for _, ep := range KnownEndpoints {
		if NormaliseName(ep) == key {
			return true
		}
	}
	return false
}
