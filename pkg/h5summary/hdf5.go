package h5summary

import (
	"fmt"

	"github.com/jmbenlloch/go-hdf5"
)

// ChipSummaryHDF5 is one row of the /Latency/summary table.
type ChipSummaryHDF5 struct {
	vfatN          int32
	max_hits       float64
	max_lat        float64
	fitted         int32
	signal         float64
	signal_err     float64
	noise          float64
	noise_err      float64
	net_signal     float64
	net_signal_err float64
	ratio          float64
	ratio_err      float64
}

func openFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, fmt.Errorf("could not create %s: %w", fname, err)
	}
	return f, nil
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, fmt.Errorf("could not create group %s: %w", groupName, err)
	}
	return g, nil
}

func deflateProps(chunks []uint, compression int) (*hdf5.PropList, error) {
	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, err
	}
	if err := plist.SetChunk(chunks); err != nil {
		plist.Close()
		return nil, err
	}
	if compression > 0 {
		if err := plist.SetDeflate(compression); err != nil {
			plist.Close()
			return nil, err
		}
	}
	return plist, nil
}

// createMatrix creates a fixed size nRows x nCols dataset of doubles.
func createMatrix(group *hdf5.Group, name string, nRows, nCols, compression int) (*hdf5.Dataset, error) {
	dims := []uint{uint(nRows), uint(nCols)}
	space, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return nil, err
	}
	defer space.Close()

	plist, err := deflateProps([]uint{1, uint(nCols)}, compression)
	if err != nil {
		return nil, err
	}
	defer plist.Close()

	dset, err := group.CreateDatasetWith(name, hdf5.T_NATIVE_DOUBLE, space, plist)
	if err != nil {
		return nil, fmt.Errorf("could not create dataset %s: %w", name, err)
	}
	return dset, nil
}

// createTable creates an extendable one dimensional dataset whose element
// type is derived from datatype.
func createTable(group *hdf5.Group, name string, datatype interface{}, compression int) (*hdf5.Dataset, error) {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	space, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, err
	}
	defer space.Close()

	plist, err := deflateProps([]uint{32}, compression)
	if err != nil {
		return nil, err
	}
	defer plist.Close()

	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, err
	}

	dset, err := group.CreateDatasetWith(name, dtype, space, plist)
	if err != nil {
		return nil, fmt.Errorf("could not create table %s: %w", name, err)
	}
	return dset, nil
}

func writeArrayToTable[T any](dataset *hdf5.Dataset, data *[]T, rowsInFile int) error {
	length := uint(len(*data))
	dataspace, err := hdf5.CreateSimpleDataspace([]uint{length}, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	if err := dataset.Resize([]uint{uint(rowsInFile) + length}); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{uint(rowsInFile)}
	count := []uint{length}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return err
	}
	return dataset.WriteSubset(data, dataspace, filespace)
}
